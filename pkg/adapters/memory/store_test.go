package memory_test

import (
	"testing"

	"github.com/aretw0/livemd/pkg/adapters/memory"
	"github.com/aretw0/livemd/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunVariableStoreContract(t, store)
}
