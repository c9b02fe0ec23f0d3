package dig_container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/grupka/grupka/apps/api/echo"
	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/child"
	aisvc "github.com/grupka/grupka/services/ai"
	"github.com/grupka/grupka/storage/cache"
)

func TestNew(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database.InMemory = true

	err := New(conf).Invoke(func(
		server *echoapi.Server,
		db DBHandle,
		revocations cache.RevocationStore,
		bioGen child.BioGenerator,
	) {
		assert.NoError(t, db.PingContext(context.Background()))
		assert.IsType(t, &cache.MemoryStore{}, revocations)
		assert.IsType(t, aisvc.StaticGenerator{}, bioGen)

		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, server.Close())
	})
	require.NoError(t, err)
}
