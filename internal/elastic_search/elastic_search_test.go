package elastic_search

import (
	"bufio"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/config"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElastic struct {
	mu      sync.Mutex
	indices map[string]string
	docs    map[string]json.RawMessage
	failIds map[string]bool
	bulks   int
}

func newFakeElastic() *fakeElastic {
	return &fakeElastic{
		indices: make(map[string]string),
		docs:    make(map[string]json.RawMessage),
		failIds: make(map[string]bool),
	}
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.URL.Path == "/_bulk":
		f.bulks++
		f.bulk(w, r)

	case r.Method == http.MethodHead && len(parts) == 1:
		if _, ok := f.indices[parts[0]]; !ok {
			w.WriteHeader(http.StatusNotFound)
		}

	case r.Method == http.MethodPut && len(parts) == 1:
		body, _ := ioutil.ReadAll(r.Body)
		f.indices[parts[0]] = string(body)
		_, _ = w.Write([]byte(`{"acknowledged":true,"shards_acknowledged":true,"index":"` + parts[0] + `"}`))

	case r.Method == http.MethodPut && len(parts) == 3 && parts[1] == "_doc":
		body, _ := ioutil.ReadAll(r.Body)
		f.docs[parts[2]] = body
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_index":"` + parts[0] + `","_id":"` + parts[2] + `","result":"created"}`))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeElastic) bulk(w http.ResponseWriter, r *http.Request) {
	type meta struct {
		Index struct {
			Index string `json:"_index"`
			Id    string `json:"_id"`
		} `json:"index"`
	}

	items := make([]map[string]interface{}, 0)
	scanner := bufio.NewScanner(r.Body)
	for scanner.Scan() {
		var m meta
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil || !scanner.Scan() {
			break
		}

		result := map[string]interface{}{"_index": m.Index.Index, "_id": m.Index.Id, "status": http.StatusCreated}
		if f.failIds[m.Index.Id] {
			result["status"] = http.StatusTooManyRequests
			result["error"] = map[string]interface{}{"type": "es_rejected_execution_exception"}
		} else {
			f.docs[m.Index.Id] = append(json.RawMessage(nil), scanner.Bytes()...)
		}
		items = append(items, map[string]interface{}{"index": result})
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{"took": 1, "errors": false, "items": items})
}

func (f *fakeElastic) doc(id string) (json.RawMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	return d, ok
}

func newTestIndex(t *testing.T, fake *fakeElastic, batch int) Index {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	idx, err := New(config.ElasticSearchConfig{
		Hosts:            []string{srv.URL},
		MappingDir:       t.TempDir(),
		BulkPersistCount: batch,
		Refresh:          "true",
	}, config.AwsConfig{})
	require.NoError(t, err)

	return idx
}

func action(operationId string) entity.MarketplaceAction {
	return entity.MarketplaceAction{
		OperationId: operationId,
		Action:      entity.SaleAction,
		Collection:  entity.MustParseAddress("0x2222222222222222222222222222222222222222"),
		AssetId:     7,
		Price:       1000,
	}
}

func TestInstallMappings(t *testing.T) {
	fake := newFakeElastic()
	idx := newTestIndex(t, fake, 10)

	dir := idx.(*index).cfg.MappingDir
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "action.json"), []byte(`{"mappings":{}}`), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "README.md"), []byte(`ignored`), 0644))

	require.NoError(t, idx.InstallMappings(context.Background()))
	require.NoError(t, idx.InstallMappings(context.Background()))

	assert.Equal(t, map[string]string{ActionIndex.Get(): `{"mappings":{}}`}, fake.indices)
}

func TestInstallMappingsMissingDirectory(t *testing.T) {
	fake := newFakeElastic()
	idx := newTestIndex(t, fake, 10)
	idx.(*index).cfg.MappingDir = filepath.Join(t.TempDir(), "missing")

	assert.Error(t, idx.InstallMappings(context.Background()))
}

func TestPersistBuffersUntilFlushed(t *testing.T) {
	ctx := context.Background()
	fake := newFakeElastic()
	idx := newTestIndex(t, fake, 2)

	first, second, third := action("op-1"), action("op-2"), action("op-3")
	idx.AddIndexRequest(ActionIndex.Get(), first, ActionCreate)

	assert.True(t, idx.HasRequest(first))
	assert.False(t, idx.BatchPersist(ctx))

	idx.AddIndexRequest(ActionIndex.Get(), second, ActionCreate)
	idx.AddIndexRequest(ActionIndex.Get(), third, ActionCreate)

	actions, err := idx.Persist(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, actions)
	assert.Equal(t, 2, fake.bulks)
	assert.Empty(t, idx.GetRequests())

	doc, ok := fake.doc(second.Slug())
	require.True(t, ok)
	assert.Contains(t, string(doc), `"operationId":"op-2"`)
}

func TestPersistRetriesFailedItems(t *testing.T) {
	ctx := context.Background()
	fake := newFakeElastic()
	idx := newTestIndex(t, fake, 10)

	failing := action("op-9")
	fake.failIds[failing.Slug()] = true

	idx.AddIndexRequest(ActionIndex.Get(), failing, ActionCreate)
	_, err := idx.Persist(ctx)
	require.NoError(t, err)

	_, ok := fake.doc(failing.Slug())
	assert.True(t, ok, "failed bulk item saved individually")
	assert.Nil(t, idx.GetRequest(failing.Slug()))
}

func TestPersistKeepsRequestsWhenUnreachable(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	idx, err := New(config.ElasticSearchConfig{Hosts: []string{srv.URL}, BulkPersistCount: 10}, config.AwsConfig{})
	require.NoError(t, err)

	idx.AddIndexRequest(RejectionIndex.Get(), action("op-1"), RejectionCreate)

	_, err = idx.Persist(ctx)
	assert.Error(t, err)
	assert.Len(t, idx.GetRequests(), 1)
}
