package librarian

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/getlibrarian/librarian/internal/domain"
	"github.com/getlibrarian/librarian/internal/graphql"
)

// varCapture records the variables of the most recent GraphQL request
type varCapture struct {
	mu   sync.Mutex
	vars map[string]any
}

func (c *varCapture) set(v map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars = v
}

func (c *varCapture) get() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vars
}

// newTestClient starts a GraphQL stub that answers each operation with the
// canned data payload registered for it.
func newTestClient(t *testing.T, responses map[string]string) (*Client, *varCapture) {
	t.Helper()

	capture := &varCapture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		capture.set(req.Variables)

		w.Header().Set("Content-Type", "application/json")
		for op, data := range responses {
			if strings.HasPrefix(req.Query, "query "+op) || strings.HasPrefix(req.Query, "mutation "+op) {
				w.Write([]byte(`{"data":` + data + `}`))
				return
			}
		}
		w.Write([]byte(`{"data":null,"errors":[{"message":"unknown operation"}]}`))
	}))
	t.Cleanup(server.Close)

	gql, err := graphql.New(server.URL, "test-key", nil)
	if err != nil {
		t.Fatalf("graphql.New() error = %v", err)
	}
	return NewClient(gql, nil), capture
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClientLibraries(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{
		"Libraries": `{"libraries":[
			{"id":"lib1","name":"TV","type":"SERIES","path":"/media/tv","itemCount":42,"updatedAt":1700000000},
			{"id":"lib2","name":"Films","type":"movie","path":"/media/films","itemCount":7,"updatedAt":1700000100}
		]}`,
	})

	libs, err := client.Libraries(testContext(t))
	if err != nil {
		t.Fatalf("Libraries() error = %v", err)
	}
	if len(libs) != 2 {
		t.Fatalf("Libraries() returned %d libraries, want 2", len(libs))
	}
	if libs[0].Type != domain.LibraryTypeSeries {
		t.Errorf("libs[0].Type = %q, want %q", libs[0].Type, domain.LibraryTypeSeries)
	}
	if libs[1].Name != "Films" || libs[1].ItemCount != 7 {
		t.Errorf("libs[1] = %+v, want Films with 7 items", libs[1])
	}
}

func TestClientRecentSeries(t *testing.T) {
	client, capture := newTestClient(t, map[string]string{
		"RecentSeries": `{"series":[
			{"id":"s1","libraryId":"lib1","title":"Severance","year":2022,"network":"Apple TV+","status":"CONTINUING","episodeCount":19,"downloadedCount":18,"addedAt":1700000000}
		]}`,
	})

	series, err := client.RecentSeries(testContext(t), "lib1", 10)
	if err != nil {
		t.Fatalf("RecentSeries() error = %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("RecentSeries() returned %d series, want 1", len(series))
	}
	if series[0].Status != "continuing" {
		t.Errorf("series[0].Status = %q, want %q", series[0].Status, "continuing")
	}
	if series[0].MissingCount() != 1 {
		t.Errorf("series[0].MissingCount() = %d, want 1", series[0].MissingCount())
	}

	vars := capture.get()
	if vars["libraryId"] != "lib1" || vars["limit"] != float64(10) {
		t.Errorf("request variables = %v, want libraryId=lib1 limit=10", vars)
	}
}

func TestClientCalendar(t *testing.T) {
	client, capture := newTestClient(t, map[string]string{
		"Calendar": `{"calendar":[
			{"seriesId":"s1","seriesTitle":"Severance","episodeTitle":"Hide and Seek","seasonNumber":3,"episodeNumber":4,"airsAt":"2026-08-28T21:00:00Z","network":"Apple TV+","libraryId":"lib1","downloaded":false}
		]}`,
	})

	entries, err := client.Calendar(testContext(t), []string{"lib1", "lib3"}, 14)
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Calendar() returned %d entries, want 1", len(entries))
	}
	if got := entries[0].EpisodeCode(); got != "S03E04" {
		t.Errorf("EpisodeCode() = %q, want %q", got, "S03E04")
	}
	want := time.Date(2026, 8, 28, 21, 0, 0, 0, time.UTC)
	if !entries[0].AirsAt.Equal(want) {
		t.Errorf("AirsAt = %v, want %v", entries[0].AirsAt, want)
	}

	ids, ok := capture.get()["libraryIds"].([]any)
	if !ok || len(ids) != 2 || ids[0] != "lib1" {
		t.Errorf("request libraryIds = %v, want [lib1 lib3]", capture.get()["libraryIds"])
	}
}

func TestClientQueue(t *testing.T) {
	client, _ := newTestClient(t, map[string]string{
		"Queue": `{"queue":[
			{"id":"q1","title":"Severance.S03E01.1080p","category":"series","protocol":"torrent","status":"downloading","size":2147483648,"sizeLeft":1073741824,"client":"qbittorrent","etaSeconds":600,"addedAt":1700000000}
		]}`,
	})

	queue, err := client.Queue(testContext(t))
	if err != nil {
		t.Fatalf("Queue() error = %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("Queue() returned %d items, want 1", len(queue))
	}
	item := queue[0]
	if item.Status != domain.DownloadActive {
		t.Errorf("Status = %v, want %v", item.Status, domain.DownloadActive)
	}
	if item.ETA != 10*time.Minute {
		t.Errorf("ETA = %v, want %v", item.ETA, 10*time.Minute)
	}
	if got := item.Progress(); got != 0.5 {
		t.Errorf("Progress() = %v, want 0.5", got)
	}
}

func TestClientLogin(t *testing.T) {
	client, capture := newTestClient(t, map[string]string{
		"Login": `{"login":{"token":"tok-123","user":{"id":"u1","username":"drake"}}}`,
	})

	token, user, err := client.Login(testContext(t), "drake", "hunter2")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q, want %q", token, "tok-123")
	}
	if user.ID != "u1" || user.Username != "drake" {
		t.Errorf("user = %+v, want u1/drake", user)
	}
	if got := capture.get()["username"]; got != "drake" {
		t.Errorf("request username = %v, want drake", got)
	}
}

func TestClientLoginRejected(t *testing.T) {
	// The stub answers unknown operations with a GraphQL error, which is
	// exactly how a server rejects bad credentials.
	client, _ := newTestClient(t, map[string]string{})

	_, _, err := client.Login(testContext(t), "drake", "wrong")
	if !errors.Is(err, domain.ErrAuthFailed) {
		t.Errorf("Login() error = %v, want ErrAuthFailed", err)
	}
}
