package handler

// maxImageBytes 压缩前的原图上限
const maxImageBytes = 10 << 20
