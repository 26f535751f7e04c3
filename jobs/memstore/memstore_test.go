package memstore

import (
	"testing"

	"github.com/kbukum/audiolens/jobs"
	"github.com/kbukum/audiolens/jobs/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) jobs.Store { return New() })
}
