package memory

import (
	"testing"

	"github.com/agentstation/tasklink/pkg/store"
	"github.com/agentstation/tasklink/pkg/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return New()
	})
}
