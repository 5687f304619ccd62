package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orbitalworks/foundry/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchAllDecodesBlueprints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/blueprints", r.URL.Path)
		fmt.Fprint(w, `{
			"factory": {
				"type": "structure",
				"production": {"manufacture": [{"item": "widget"}]}
			},
			"widget": {
				"build": {"time": 5, "resources": {"iron": 10}}
			},
			"mine": {
				"type": "deployable",
				"production": {"generate": {"type": "ore", "quantity": 5, "period": 60}}
			},
			"ore": {
				"refine": {"time": 2, "outputs": {"iron": 4}}
			}
		}`)
	}))
	defer srv.Close()

	client := NewClient(config.Config{TechDBURL: srv.URL}, zap.NewNop())

	blueprints, err := client.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, blueprints, 4)

	factory := blueprints["factory"]
	assert.True(t, factory.IsProductionCapable())
	assert.True(t, factory.CanProduce("manufacture", "widget"))
	assert.False(t, factory.CanProduce("refine", "widget"))
	assert.False(t, factory.CanProduce("manufacture", "ore"))

	widget := blueprints["widget"]
	assert.False(t, widget.IsProductionCapable())
	require.NotNil(t, widget.Build)
	assert.Equal(t, int64(5), widget.Build.Time)
	assert.Equal(t, int64(10), widget.Build.Resources["iron"])

	mine := blueprints["mine"]
	require.NotNil(t, mine.Production.Generate)
	assert.Equal(t, "ore", mine.Production.Generate.Type)
	assert.Equal(t, int64(60), mine.Production.Generate.Period)

	ore := blueprints["ore"]
	require.NotNil(t, ore.Refine)
	assert.Equal(t, int64(4), ore.Refine.Outputs["iron"])
}

func TestFetchAllMapsFailuresToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(config.Config{TechDBURL: srv.URL}, zap.NewNop())

	_, err := client.FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	srv.Close()
	_, err = client.FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}
