package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterJobsRejectsBadSpec(t *testing.T) {
	mgr := NewCronManager("every ten minutes", nil)
	assert.Error(t, mgr.RegisterJobs())
}

func TestRegisterJobsDefaultSpec(t *testing.T) {
	mgr := NewCronManager("", nil)
	assert.NoError(t, mgr.RegisterJobs())
	assert.Len(t, mgr.engine.Entries(), 1)
}
