package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/nutricalc/internal/estimator"
)

// isolateEnv clears every variable config.Load reads so a developer's .env
// cannot leak real keys into tests
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "DATABASE_URL",
		"NUTRICALC_SQLITE_PATH", "NUTRICALC_ESTIMATOR_URL", "PORT",
	} {
		t.Setenv(key, "")
	}
}

// runCLI executes the root command in-process and returns combined output
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// fakeEstimator serves the HTTP backend protocol: estimate n gets kcal 100*(n+1)
type fakeEstimator struct {
	*httptest.Server
	calls atomic.Int32
}

func newFakeEstimator(t *testing.T, fail func(descriptions []string) bool) *fakeEstimator {
	t.Helper()
	f := &fakeEstimator{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		var req estimator.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if fail != nil && fail(req.Descriptions) {
			http.Error(w, "estimator unavailable", http.StatusServiceUnavailable)
			return
		}
		items := make([]string, len(req.Descriptions))
		for i := range req.Descriptions {
			n := i + 1
			items[i] = fmt.Sprintf(`{"kcal": %d, "protein_g": %d, "carb_g": %d, "fat_g": %d}`, 100*n, 10*n, 20*n, n)
		}
		fmt.Fprintf(w, "Sure! Here are the estimates:\n[%s]", strings.Join(items, ","))
	}))
	t.Cleanup(f.Close)
	t.Setenv("NUTRICALC_ESTIMATOR_URL", f.URL)
	return f
}

func requireContains(t *testing.T, output string, want ...string) {
	t.Helper()
	for _, w := range want {
		require.Contains(t, output, w)
	}
}
