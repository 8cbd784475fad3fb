package elastic_search

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/config"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/aws/aws-sdk-go/aws/credentials"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/olivere/elastic/v7"
	"github.com/patrickmn/go-cache"
	"github.com/sha1sum/aws_signing_client"
	"go.uber.org/zap"
)

var ErrTooManyRequests = errors.New("elastic: Error 429 (Too Many Requests)")

type Index interface {
	GetClient() *elastic.Client

	InstallMappings(ctx context.Context) error

	AddIndexRequest(index string, entity entity.Entity, reqAction RequestAction)
	HasRequest(entity entity.Entity) bool
	GetRequests() []Request
	GetRequest(id string) *Request
	ClearRequests()

	Save(ctx context.Context, index string, entity entity.Entity) error
	BatchPersist(ctx context.Context) bool
	Persist(ctx context.Context) (int, error)
}

type index struct {
	client    *elastic.Client
	cache     *cache.Cache
	cfg       config.ElasticSearchConfig
	batchSize int
}

type Request struct {
	Index  string
	Entity entity.Entity
	Action RequestAction
}

type RequestAction string

const (
	ActionCreate    RequestAction = "ActionCreate"
	RejectionCreate RequestAction = "RejectionCreate"
)

const saveAttempts int = 3

func New(cfg config.ElasticSearchConfig, aws config.AwsConfig) (Index, error) {
	client, err := newClient(cfg, aws)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("ElasticSearch: Failed to create client")
		return nil, err
	}

	batchSize := cfg.BulkPersistCount
	if batchSize <= 0 {
		batchSize = 250
	}

	return &index{client, cache.New(cache.NoExpiration, 10*time.Minute), cfg, batchSize}, nil
}

func newClient(cfg config.ElasticSearchConfig, aws config.AwsConfig) (*elastic.Client, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.Hosts...),
		elastic.SetSniff(cfg.Sniff),
		elastic.SetHealthcheck(cfg.HealthCheck),
	}

	if cfg.Debug {
		opts = append(opts, elastic.SetTraceLog(ElasticLogger{}))
	}

	if cfg.Aws {
		creds := credentials.NewStaticCredentials(aws.AccessKey, aws.SecretKey, aws.Token)
		awsClient, err := aws_signing_client.New(v4.NewSigner(creds), nil, "es", aws.Region)
		if err != nil {
			return nil, err
		}

		opts = append(opts, elastic.SetHttpClient(awsClient))
		opts = append(opts, elastic.SetScheme("https"))
		return elastic.NewClient(opts...)
	}

	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}

	return elastic.NewClient(opts...)
}

func (i *index) GetClient() *elastic.Client {
	return i.client
}

// InstallMappings creates one index per mapping file, named after the file.
func (i *index) InstallMappings(ctx context.Context) error {
	zap.L().With(zap.String("dir", i.cfg.MappingDir)).Info("ElasticSearch: Install Mappings")

	files, err := ioutil.ReadDir(i.cfg.MappingDir)
	if err != nil {
		return fmt.Errorf("mappings directory: %w", err)
	}

	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}

		b, err := ioutil.ReadFile(filepath.Join(i.cfg.MappingDir, f.Name()))
		if err != nil {
			return fmt.Errorf("mapping file %s: %w", f.Name(), err)
		}

		name := Indices(strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))).Get()
		if err = i.createIndex(ctx, name, b); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}

	return nil
}

func (i *index) createIndex(ctx context.Context, name string, mapping []byte) error {
	exists, err := i.client.IndexExists(name).Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	createIndex, err := i.client.CreateIndex(name).BodyString(string(mapping)).Do(ctx)
	if err != nil {
		return err
	}

	if createIndex.Acknowledged {
		zap.L().With(zap.String("index", name)).Info("ElasticSearch: Created index")
	}

	return nil
}

func (i *index) AddIndexRequest(index string, entity entity.Entity, reqAction RequestAction) {
	zap.L().With(
		zap.String("index", index),
		zap.String("slug", entity.Slug()),
		zap.String("action", string(reqAction)),
	).Debug("ElasticSearch: AddIndexRequest")

	i.cache.Set(entity.Slug(), Request{index, entity, reqAction}, cache.DefaultExpiration)
}

func (i *index) HasRequest(entity entity.Entity) bool {
	_, found := i.cache.Get(entity.Slug())

	return found
}

func (i *index) GetRequests() []Request {
	requests := make([]Request, 0)

	for _, item := range i.cache.Items() {
		requests = append(requests, item.Object.(Request))
	}

	return requests
}

func (i *index) GetRequest(id string) *Request {
	if item, found := i.cache.Get(id); found {
		req := item.(Request)
		return &req
	}
	return nil
}

func (i *index) ClearRequests() {
	i.cache.Flush()
}

func (i *index) Save(ctx context.Context, index string, entity entity.Entity) error {
	var err error
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		_, err = i.client.Index().
			Index(index).
			Id(entity.Slug()).
			BodyJson(entity).
			Do(ctx)
		if err == nil {
			return nil
		}

		zap.L().With(
			zap.Error(err),
			zap.String("index", index),
			zap.String("slug", entity.Slug()),
			zap.Int("attempt", attempt),
		).Warn("ElasticSearch: Failed to save entity")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}

	return err
}

// BatchPersist persists buffered requests once a full batch is waiting.
func (i *index) BatchPersist(ctx context.Context) bool {
	if i.cache.ItemCount() < i.batchSize {
		return false
	}

	start := time.Now()
	actions, err := i.Persist(ctx)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("ElasticSearch: Failed to batch persist")
		return false
	}

	zap.L().With(
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("actions", actions),
	).Info("ElasticSearch: Persisting data")

	return true
}

// Persist writes every buffered request with bulk calls and returns the number of actions sent.
func (i *index) Persist(ctx context.Context) (int, error) {
	requests := i.GetRequests()
	if len(requests) == 0 {
		return 0, nil
	}

	total := 0
	bulk := i.client.Bulk()
	for _, r := range requests {
		bulk.Add(elastic.NewBulkIndexRequest().Index(r.Index).Id(r.Entity.Slug()).Doc(r.Entity))

		if bulk.NumberOfActions() >= i.batchSize {
			total += bulk.NumberOfActions()
			if err := i.persist(ctx, bulk); err != nil {
				return total, err
			}
			bulk = i.client.Bulk()
		}
	}

	if bulk.NumberOfActions() != 0 {
		total += bulk.NumberOfActions()
		if err := i.persist(ctx, bulk); err != nil {
			return total, err
		}
	}

	return total, nil
}

func (i *index) persist(ctx context.Context, bulk *elastic.BulkService) error {
	zap.L().With(zap.Int("actions", bulk.NumberOfActions())).Debug("ElasticSearch: Persisting actions")

	response, err := bulk.Refresh(i.cfg.Refresh).Do(ctx)
	if err != nil {
		if err.Error() == ErrTooManyRequests.Error() {
			zap.L().With(zap.Error(err)).Warn("ElasticSearch: 429 (Too Many Requests)")
		}
		return err
	}

	for _, item := range response.Succeeded() {
		i.cache.Delete(item.Id)
	}

	for _, failed := range response.Failed() {
		zap.L().With(
			zap.Any("error", failed.Error),
			zap.String("index", failed.Index),
			zap.String("id", failed.Id),
		).Error("ElasticSearch: Failed to persist request. Retrying...")

		req := i.GetRequest(failed.Id)
		if req == nil {
			continue
		}
		if err := i.Save(ctx, failed.Index, req.Entity); err != nil {
			return err
		}
		i.cache.Delete(failed.Id)
	}

	return nil
}
