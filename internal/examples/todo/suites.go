package todo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"that/internal/replay"
	"that/pkg/mock"
	"that/pkg/registry"
	"that/pkg/that"
)

// todoSchema is the JSON document FileStorage writes.
const todoSchema = `{
  "type": "object",
  "required": ["todos"],
  "properties": {
    "todos": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "title", "priority", "status", "created_at"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "title": {"type": "string", "minLength": 1, "maxLength": 200},
          "priority": {"enum": ["low", "medium", "high"]},
          "status": {"enum": ["pending", "completed"]},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

type notifierError struct {
	Reason string
}

func (e *notifierError) Error() string { return e.Reason }

type searchCase struct {
	Query string
	Match bool
}

// Register declares the todo example suites on reg.
func Register(reg *registry.Registry) {
	reg.Suite("Todo model", registerModel, registry.WithTags(registry.TagUnit))
	reg.Suite("MemoryStorage", registerMemoryStorage, registry.WithTags(registry.TagUnit))
	reg.Suite("FileStorage", registerFileStorage)
	reg.Suite("Remote sync", registerRemote, registry.WithTags(registry.TagIntegration))
}

func registerModel(s *registry.SuiteBuilder) {
	s.Test("new todos start pending with medium priority", func(t *registry.T) {
		td, err := New("Buy milk")
		that.That(err).IsNil()
		that.That(td.Status, "status").Equals(StatusPending)
		that.That(td.Priority, "priority").Equals(PriorityMedium)
		that.That(td.CompletedAt, "completed_at").IsNil()
	})

	s.Test("rejects an empty title", func(t *registry.T) {
		that.That(func() (*Todo, error) { return New("   ") }).
			Raises(ErrInvalid, "title cannot be empty")
	})

	s.Test("rejects a title over 200 characters", func(t *registry.T) {
		that.That(func() (*Todo, error) { return New(strings.Repeat("x", 201)) }).
			Raises(ErrInvalid).WithMessage("cannot exceed 200")
	})

	s.Test("rejects an unknown priority", func(t *registry.T) {
		that.That(func() (*Todo, error) { return New("x", WithPriority("urgent")) }).
			Raises(ErrInvalid, "priority")
	})

	s.Test("tags are normalized and de-duplicated", func(t *registry.T) {
		td, err := New("Plan trip", WithTags(" Travel", "travel", "HOME", ""))
		that.That(err).IsNil()
		that.That(td.Tags).Equals([]string{"home", "travel"})

		that.That(td.AddTag("Travel")).IsNil()
		that.That(td.Tags).HasLength(2)
		that.That(func() error { return td.AddTag("  ") }).Raises(ErrInvalid, "tag cannot be empty")

		td.RemoveTag("HOME")
		that.That(td.HasTag("home")).IsFalse()
	})

	s.Test("completing stamps the frozen clock", func(t *registry.T) {
		_, err := replay.Freeze(t, &Now, "", "2024-01-01T12:00:00Z")
		that.That(err).IsNil()

		td, err := New("Write report")
		that.That(err).IsNil()
		that.That(td.CreatedAt).Equals(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
		that.That(td.Complete()).IsNil()
		that.That(td.Status).Equals(StatusCompleted)
		that.That(*td.CompletedAt).Equals(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
		that.That(td.Complete).Raises(ErrInvalid, "already completed")

		that.That(td.Reopen()).IsNil()
		that.That(td.CompletedAt).IsNil()
		that.That(td.Reopen).Raises(ErrInvalid, "already pending")
	})

	todo := func() *Todo {
		td, _ := New("Buy milk", WithDescription("Semi-skimmed from the corner shop"), WithTags("groceries"))
		return td
	}
	s.Parametrize("search", []any{
		searchCase{Query: "MILK", Match: true},
		searchCase{Query: "corner", Match: true},
		searchCase{Query: "grocer", Match: true},
		searchCase{Query: "bread", Match: false},
	}, func(t *registry.T, param any) {
		c := param.(searchCase)
		that.That(todo().MatchesSearch(c.Query), c.Query).Equals(c.Match)
	})
}

func registerMemoryStorage(s *registry.SuiteBuilder) {
	s.Setup(func(*registry.T) (any, error) {
		return NewMemoryStorage(), nil
	})

	s.Provide("groceries", func(t *registry.T) (any, error) {
		store := t.Fixture().(*MemoryStorage)
		var out []*Todo
		for _, title := range []string{"Milk", "Bread", "Eggs"} {
			td, err := New(title, WithTags("groceries"))
			if err != nil {
				return nil, err
			}
			if err := store.Save(td); err != nil {
				return nil, err
			}
			out = append(out, td)
		}
		return out, nil
	})

	s.Test("saves and gets a todo", func(t *registry.T) {
		store := t.Fixture().(*MemoryStorage)
		td, _ := New("Call mom")
		that.That(store.Save(td)).IsNil()
		got, err := store.Get(td.ID)
		that.That(err).IsNil()
		that.That(got.Title).Equals("Call mom")
	})

	s.Test("saving the same ID twice fails", func(t *registry.T) {
		store := t.Fixture().(*MemoryStorage)
		td, _ := New("Call mom")
		that.That(store.Save(td)).IsNil()
		that.That(func() error { return store.Save(td) }).Raises(ErrDuplicate)
	})

	s.Test("unknown IDs are not found", func(t *registry.T) {
		store := t.Fixture().(*MemoryStorage)
		that.That(func() (*Todo, error) { return store.Get("nope") }).Raises(ErrNotFound, "nope")
		that.That(func() error { return store.Delete("nope") }).Raises(ErrNotFound)
	})

	s.Test("finds by status and tag", func(t *registry.T) {
		store := t.Fixture().(*MemoryStorage)
		items := t.Use("groceries").([]*Todo)
		that.That(items[0].Complete()).IsNil()
		that.That(store.Update(items[0])).IsNil()

		pending, err := FindByStatus(store, StatusPending)
		that.That(err).IsNil()
		that.That(pending).HasLength(2)

		tagged, err := FindByTag(store, "GROCERIES")
		that.That(err).IsNil()
		that.That(tagged).HasLength(3).
			AllSatisfy(func(v any) bool { return v.(*Todo).HasTag("groceries") })
	})

	s.Test("search matches titles case-insensitively", func(t *registry.T) {
		store := t.Fixture().(*MemoryStorage)
		t.Use("groceries")
		found, err := Search(store, "bre")
		that.That(err).IsNil()
		that.That(found).HasLength(1)
		that.That(found[0].Title).Equals("Bread")
	})

	s.Test("clear empties the store", func(t *registry.T) {
		store := t.Fixture().(*MemoryStorage)
		t.Use("groceries")
		that.That(store.Clear()).IsNil()
		all, _ := store.All()
		that.That(all).IsEmpty()
	})
}

type fileFixture struct {
	dir   string
	store *FileStorage
}

func registerFileStorage(s *registry.SuiteBuilder) {
	s.Setup(func(*registry.T) (any, error) {
		dir, err := os.MkdirTemp("", "that-todo-*")
		if err != nil {
			return nil, err
		}
		store, err := OpenFileStorage(filepath.Join(dir, "todos.json"))
		if err != nil {
			return nil, err
		}
		return &fileFixture{dir: dir, store: store}, nil
	})
	s.Teardown(func(_ *registry.T, fixture any) error {
		return os.RemoveAll(fixture.(*fileFixture).dir)
	})

	s.Test("a missing file opens empty", func(t *registry.T) {
		f := t.Fixture().(*fileFixture)
		all, err := f.store.All()
		that.That(err).IsNil()
		that.That(all).IsEmpty()
	})

	s.Test("writes a document matching the schema", func(t *registry.T) {
		f := t.Fixture().(*fileFixture)
		td, _ := New("Water plants", WithPriority(PriorityHigh), WithTags("home"))
		that.That(f.store.Save(td)).IsNil()

		data, err := os.ReadFile(f.store.Path())
		that.That(err).IsNil()
		doc := that.That(data, "todos.json").AsJSON()
		doc.MatchesSchema(todoSchema)
		doc.Path("todos[0].priority").Equals("high")
		doc.Path("todos[0].tags").Equals([]any{"home"})
	})

	s.Test("changes survive reopening", func(t *registry.T) {
		f := t.Fixture().(*fileFixture)
		td, _ := New("Pay rent")
		that.That(f.store.Save(td)).IsNil()
		that.That(td.Complete()).IsNil()
		that.That(f.store.Update(td)).IsNil()

		reopened, err := OpenFileStorage(f.store.Path())
		that.That(err).IsNil()
		got, err := reopened.Get(td.ID)
		that.That(err).IsNil()
		that.That(got.Status).Equals(StatusCompleted)
	})

	s.Test("a corrupt file is rejected", func(t *registry.T) {
		f := t.Fixture().(*fileFixture)
		that.That(os.WriteFile(f.store.Path(), []byte("{not json"), 0644)).IsNil()
		that.That(func() (*FileStorage, error) { return OpenFileStorage(f.store.Path()) }).
			Raises(nil, "failed to parse")
	})
}

// syncServer is an in-process stand-in for the todo sync service.
type syncServer struct {
	*httptest.Server

	mu    sync.Mutex
	todos []*Todo
	hits  int
}

func newSyncServer(seed ...*Todo) *syncServer {
	s := &syncServer{todos: seed}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *syncServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++

	if r.URL.Path != "/todos" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(fileDocument{Todos: s.todos})
	case http.MethodPost:
		var doc fileDocument
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.todos = append(s.todos, doc.Todos...)
		_ = json.NewEncoder(w).Encode(map[string]int{"accepted": len(doc.Todos)})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *syncServer) requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

type remoteFixture struct {
	server    *syncServer
	cassettes string
}

func registerRemote(s *registry.SuiteBuilder) {
	s.Setup(func(*registry.T) (any, error) {
		dir, err := os.MkdirTemp("", "that-cassettes-*")
		if err != nil {
			return nil, err
		}
		seed, _ := New("Seeded", WithID("seed-1"), WithTags("remote"))
		return &remoteFixture{server: newSyncServer(seed), cassettes: dir}, nil
	})
	s.Teardown(func(_ *registry.T, fixture any) error {
		f := fixture.(*remoteFixture)
		f.server.Close()
		return os.RemoveAll(f.cassettes)
	})

	s.Test("pull replays from the cassette once recorded", func(t *registry.T) {
		f := t.Fixture().(*remoteFixture)

		rec, err := replay.Open("pull", replay.WithDir(f.cassettes), replay.WithMode(replay.ModeOnce))
		that.That(err).IsNil()
		that.That(rec.Recording(), "recording").IsTrue()

		store := NewMemoryStorage()
		added, err := NewClient(f.server.URL, rec.Client()).Pull(t.Context(), store)
		that.That(err).IsNil()
		that.That(added).Equals(1)
		that.That(f.server.requests(), "server hits").Equals(1)

		again, err := replay.Open("pull", replay.WithDir(f.cassettes), replay.WithMode(replay.ModeNone))
		that.That(err).IsNil()
		fresh := NewMemoryStorage()
		added, err = NewClient(f.server.URL, again.Client()).Pull(t.Context(), fresh)
		that.That(err).IsNil()
		that.That(added).Equals(1)
		that.That(f.server.requests(), "server hits").Equals(1)

		got, err := fresh.Get("seed-1")
		that.That(err).IsNil()
		that.That(got.Tags).Equals([]string{"remote"})
	}, registry.WithTags(registry.TagNetwork))

	s.Test("pull skips todos already stored", func(t *registry.T) {
		f := t.Fixture().(*remoteFixture)
		store := NewMemoryStorage()
		seed, _ := New("Seeded", WithID("seed-1"))
		that.That(store.Save(seed)).IsNil()

		added, err := NewClient(f.server.URL, nil).Pull(t.Context(), store)
		that.That(err).IsNil()
		that.That(added).Equals(0)
	})

	s.Test("push notifies with the accepted count", func(t *registry.T) {
		f := t.Fixture().(*remoteFixture)
		store := NewMemoryStorage()
		for _, title := range []string{"One", "Two"} {
			td, _ := New(title)
			that.That(store.Save(td)).IsNil()
		}

		client := NewClient(f.server.URL, nil)
		notify := mock.MustInstall(t, client, "Notify", mock.Constant(nil))

		accepted, err := client.Push(t.Context(), store)
		that.That(err).IsNil()
		that.That(accepted).Equals(2)
		notify.AssertCalledOnce().AssertCalledWith("pushed 2 todos")
	})

	s.Test("a failing notifier surfaces after the push", func(t *registry.T) {
		f := t.Fixture().(*remoteFixture)
		store := NewMemoryStorage()
		td, _ := New("One")
		that.That(store.Save(td)).IsNil()

		client := NewClient(f.server.URL, nil)
		mock.MustInstall(t, client, "Notify", mock.Raises(&notifierError{Reason: "smtp down"}))

		that.That(func() (int, error) { return client.Push(t.Context(), store) }).
			Raises((*notifierError)(nil), "notify: smtp down")
	})

	s.Test("service errors carry the status code", func(t *registry.T) {
		f := t.Fixture().(*remoteFixture)
		client := NewClient(f.server.URL+"/missing", nil)

		that.That(func() (int, error) { return client.Pull(t.Context(), NewMemoryStorage()) }).
			Raises(nil, "unexpected status 404")
	})
}
