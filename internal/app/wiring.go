package app

import (
	"fmt"

	"commonthread/internal/cache"
	"commonthread/internal/config"
	"commonthread/internal/domain/mltask"
	awsinfra "commonthread/internal/infra/aws"
	"commonthread/internal/ml"
	"commonthread/internal/pipeline"
	"commonthread/internal/queue"
	"commonthread/internal/repository"
	"commonthread/internal/repository/memory"
	"commonthread/internal/repository/postgres"
	"commonthread/internal/storage/s3"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/rs/zerolog"
)

const (
	errFailedOpenStoreFmt    = "failed to open store: %w"
	errFailedOpenBrokerFmt   = "failed to open broker: %w"
	errFailedAWSSessionFmt   = "failed to initialize aws: %w"
	errFailedOpenCacheFmt    = "failed to open presign cache: %w"
	errUnknownStoreDriverFmt = "unknown store driver %q"
	errUnknownQueueDriverFmt = "unknown queue driver %q"
)

// components are shared by every process kind.
type components struct {
	cfg       *config.Config
	log       zerolog.Logger
	store     *repository.Store
	broker    queue.Broker
	presigner cache.Presigner
	closers   []func()
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// initComponents opens the store, the AWS session, the presigner and the
// broker. Everything opened is released by close.
func initComponents(cfg *config.Config, log zerolog.Logger) (*components, error) {
	c := &components{cfg: cfg, log: log}

	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	c.store = store
	c.closers = append(c.closers, store.Close)

	sess, err := awsinfra.NewSession(&cfg.AWS)
	if err != nil {
		c.close()
		return nil, fmt.Errorf(errFailedAWSSessionFmt, err)
	}

	presigner, closeCache, err := newPresigner(cfg, sess, log)
	if err != nil {
		c.close()
		return nil, err
	}
	c.presigner = presigner
	c.closers = append(c.closers, closeCache)

	broker, err := OpenBroker(cfg, sess)
	if err != nil {
		c.close()
		return nil, err
	}
	c.broker = broker
	c.closers = append(c.closers, func() {
		if err := broker.Close(); err != nil {
			log.Warn().Err(err).Msg(msgBrokerCloseFailed)
		}
	})

	return c, nil
}

// OpenStore connects the configured persistence backend.
func OpenStore(cfg *config.Config) (*repository.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := postgres.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf(errFailedOpenStoreFmt, err)
		}
		return db.Repositories(), nil
	case config.StoreDriverMemory:
		return memory.NewStore().Repositories(), nil
	default:
		return nil, fmt.Errorf(errUnknownStoreDriverFmt, cfg.Store.Driver)
	}
}

// OpenBroker connects the configured broker.
func OpenBroker(cfg *config.Config, sess *session.Session) (queue.Broker, error) {
	switch cfg.Queue.Driver {
	case config.QueueDriverSQS:
		return queue.NewSQSBroker(sess, &cfg.Queue), nil
	case config.QueueDriverRabbitMQ:
		b, err := queue.NewRabbitBroker(&cfg.Queue)
		if err != nil {
			return nil, fmt.Errorf(errFailedOpenBrokerFmt, err)
		}
		return b, nil
	case config.QueueDriverMemory:
		return queue.NewMemoryBroker(cfg.Queue.MaxMessages), nil
	default:
		return nil, fmt.Errorf(errUnknownQueueDriverFmt, cfg.Queue.Driver)
	}
}

// newPresigner puts a URL cache in front of S3. Redis is used when
// configured, otherwise an in-process cache.
func newPresigner(cfg *config.Config, sess *session.Session, log zerolog.Logger) (cache.Presigner, func(), error) {
	var store cache.Store
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf(errFailedOpenCacheFmt, err)
		}
		store = rc
	} else {
		store = cache.NewMemoryCache()
	}

	closeFn := func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg(msgCacheCloseFailed)
		}
	}
	return cache.NewCachedPresigner(s3.NewClient(sess), store, log), closeFn, nil
}

func newChatter(cfg *config.Config) ml.Chatter {
	if cfg.ML.Chat == config.MLDriverRemote {
		return ml.NewPerplexitySummarizer(cfg.ML.PerplexityURL, cfg.ML.PerplexityAPIKey, cfg.ML.PerplexityModel, cfg.ML.HTTPTimeout)
	}
	return ml.NewLocalChatter()
}

// newProcessors binds each task type to its service and the configured
// backend variants.
func newProcessors(cfg *config.Config, store *repository.Store, presigner cache.Presigner) map[mltask.TaskType]pipeline.TaskProcessor {
	local := ml.NewLocalSummarizer()

	var collective ml.Summarizer = local
	if cfg.ML.Summarizer == config.MLDriverRemote {
		collective = ml.NewPerplexitySummarizer(cfg.ML.PerplexityURL, cfg.ML.PerplexityAPIKey, cfg.ML.PerplexityModel, cfg.ML.HTTPTimeout)
	}

	var tagger ml.Tagger = ml.NewLocalTagger()
	if cfg.ML.Tagger == config.MLDriverRemote {
		tagger = ml.NewRemoteTagger(cfg.ML.TaggerURL, cfg.ML.TaggerToken, cfg.ML.HTTPTimeout)
	}

	transcriber := ml.NewDeepgramTranscriber(cfg.ML.DeepgramURL, cfg.ML.DeepgramAPIKey, cfg.ML.HTTPTimeout)

	return map[mltask.TaskType]pipeline.TaskProcessor{
		mltask.TypeTranscription: ml.NewTranscriptionService(store.Stories, presigner, transcriber, cfg.Buckets.StoryAudio),
		mltask.TypeTag:           ml.NewTaggingService(store.Tx, store.Stories, store.Tags, tagger),
		mltask.TypeSummarization: ml.NewSummarizationService(store.Stories, store.Projects, local, collective),
	}
}
