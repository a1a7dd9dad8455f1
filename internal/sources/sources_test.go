package sources

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetscan/fleetscan/internal/contract"
	"github.com/fleetscan/fleetscan/schema"
)

// fakeResponse is one canned backend reply.
type fakeResponse struct {
	body string
	next string
	err  error
}

// fakeClient serves canned responses keyed by URL path. Multiple responses
// registered on one path are served in order, with the last one repeating.
// Unrouted paths answer 404 so optional sub-resources read as absent.
type fakeClient struct {
	mu      sync.Mutex
	seq     map[string][]fakeResponse
	calls   []string
	queries []url.Values
}

var _ contract.RestClient = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{seq: map[string][]fakeResponse{}}
}

func (f *fakeClient) route(path, body string) *fakeClient {
	f.seq[path] = append(f.seq[path], fakeResponse{body: body})
	return f
}

func (f *fakeClient) routeNext(path, body, next string) *fakeClient {
	f.seq[path] = append(f.seq[path], fakeResponse{body: body, next: next})
	return f
}

func (f *fakeClient) routeErr(path string, err error) *fakeClient {
	f.seq[path] = append(f.seq[path], fakeResponse{err: err})
	return f
}

func (f *fakeClient) Fetch(_ context.Context, rawURL string, params url.Values) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", err
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}

	f.mu.Lock()
	f.calls = append(f.calls, u.Path)
	f.queries = append(f.queries, q)
	responses := f.seq[u.Path]
	var resp fakeResponse
	switch len(responses) {
	case 0:
		f.mu.Unlock()
		return nil, "", &contract.NotFoundError{Backend: "fake", URL: rawURL}
	case 1:
		resp = responses[0]
	default:
		resp = responses[0]
		f.seq[u.Path] = responses[1:]
	}
	f.mu.Unlock()

	if resp.err != nil {
		return nil, "", resp.err
	}
	return []byte(resp.body), resp.next, nil
}

// callCount returns how many fetches hit the given path.
func (f *fakeClient) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call == path {
			count++
		}
	}
	return count
}

// queryFor returns the merged query values of the nth fetch against path.
func (f *fakeClient) queryFor(t *testing.T, path string, n int) url.Values {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := 0
	for i, call := range f.calls {
		if call != path {
			continue
		}
		if seen == n {
			return f.queries[i]
		}
		seen++
	}
	t.Fatalf("no call %d recorded for %s", n, path)
	return nil
}

// fixedNow pins the clock so age and cycle time assertions stay exact.
func fixedNow() time.Time {
	return time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
}

func testConfig() *contract.Config {
	return &contract.Config{
		Org:          "acme",
		LookbackDays: 90,
		PageSize:     2,
		StaleDays:    30,
		Hosting:      contract.BackendConfig{BaseURL: "https://git.example.com", Token: "t1"},
		Quality:      contract.BackendConfig{BaseURL: "https://sonar.example.com", Token: "t2"},
		Composition:  contract.BackendConfig{BaseURL: "https://iq.example.com", Token: "t3"},
		Testing:      contract.BackendConfig{BaseURL: "https://tests.example.com", Token: "t4"},
	}
}

func TestCollectionRun(t *testing.T) {
	transient := &contract.TransientError{Backend: "hosting", Err: errors.New("flaky")}
	missing := &contract.NotFoundError{Backend: "hosting", URL: "https://git.example.com/x"}
	rejected := &contract.AuthorizationError{Backend: "hosting", Status: 403}

	tests := []struct {
		name         string
		root         bool
		err          error
		wantAbsent   bool
		wantDegraded bool
		wantAbort    bool
	}{
		{"success keeps collecting", false, nil, false, false, false},
		{"root absence marks the record absent", true, missing, true, false, false},
		{"sub-resource absence is skipped", false, missing, false, false, false},
		{"transient failure degrades", false, transient, false, true, false},
		{"decode failure degrades", false, errors.New("decoding response: bad json"), false, true, false},
		{"authorization aborts", false, rejected, false, false, true},
		{"cancellation aborts", false, context.Canceled, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCollection(schema.HostingSource, "widget-api")
			err := c.run("step", tt.root, func() error { return tt.err })

			if tt.wantAbort {
				assert.Error(t, err, "abort-worthy failures must surface")
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantAbsent, c.absent, "absent mismatch")
			assert.Equal(t, tt.wantDegraded, c.degraded, "degraded mismatch")
		})
	}
}

func TestCollectionRunSkipsAfterAbsent(t *testing.T) {
	c := newCollection(schema.QualitySource, "widget-api")
	c.absent = true

	called := false
	err := c.run("step", false, func() error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.False(t, called, "steps after root absence must not run")
}

func TestCollectionRecordFlags(t *testing.T) {
	tests := []struct {
		name         string
		absent       bool
		degraded     bool
		wantPresent  bool
		wantDegraded bool
	}{
		{"clean record", false, false, true, false},
		{"degraded record", false, true, true, true},
		{"absent record", true, false, false, false},
		{"absent wins over degraded", true, true, false, false}, // absence makes degradation meaningless
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCollection(schema.TestingSource, "widget-api")
			c.absent = tt.absent
			c.degraded = tt.degraded

			rec := c.record(fixedNow())
			assert.Equal(t, tt.wantPresent, rec.Present)
			assert.Equal(t, tt.wantDegraded, rec.Degraded)
			assert.Equal(t, fixedNow(), rec.FetchedAt)
		})
	}
}
