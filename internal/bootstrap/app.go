// Package bootstrap assembles configuration, collaborator clients, and the
// HTTP router into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	"propchat/internal/ai"
	"propchat/internal/chat"
	"propchat/internal/config"
	"propchat/internal/extract"
	"propchat/internal/model"
	"propchat/internal/pkg/retry"
	"propchat/internal/platform/blob"
	"propchat/internal/platform/logger"
	"propchat/internal/platform/mysql"
	"propchat/internal/platform/rabbitmq"
	redisplatform "propchat/internal/platform/redis"
	"propchat/internal/repository"
	"propchat/internal/retrieval"
	"propchat/internal/searchindex"
	"propchat/internal/store"
	transporthttp "propchat/internal/transport/http"
	"propchat/internal/transport/http/handler"
	"propchat/internal/worker"
)

type App struct {
	Config *config.Config
	Log    *logger.Logger
	Router *gin.Engine

	// Worker is non-nil only when the persistence pipeline is enabled.
	Worker *worker.TurnPersistWorker

	signer     *blob.Signer
	rabbitConn *amqp.Connection
	publisher  *rabbitmq.TurnPublisher
}

// boundEmbedder binds the shared API client to the embedding settings so the
// retriever sees a single-method embedder.
type boundEmbedder struct {
	client *ai.OpenAICompatibleClient
	cfg    ai.EmbeddingConfig
}

func (e *boundEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, e.cfg, text)
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	app := &App{Config: cfg, Log: log}

	redisClient, err := redisplatform.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	sessions := store.NewSessionStore(
		redisClient,
		time.Duration(cfg.Redis.SessionTTLSeconds)*time.Second,
		cfg.Retrieval.MaxConversationTurns,
		cfg.Upload.MaxUploadsPerSess,
	)

	retryPol := retry.DefaultPolicy()
	if cfg.Retrieval.RetryMaxAttempts > 0 {
		retryPol.MaxAttempts = cfg.Retrieval.RetryMaxAttempts
	}
	requestTimeout := time.Duration(cfg.App.RequestTimeout) * time.Second

	aiClient := ai.NewOpenAICompatibleClient(requestTimeout, retryPol)
	searchClient := searchindex.NewClient(searchindex.Config{
		Endpoint:    cfg.Search.Endpoint,
		APIKey:      cfg.Search.APIKey,
		IndexName:   cfg.Search.IndexName,
		IndexerName: cfg.Search.IndexerName,
		VectorField: cfg.Search.VectorField,
		APIVersion:  cfg.Search.APIVersion,
	}, 30*time.Second, retryPol)

	var urlSigner retrieval.URLSigner
	if cfg.Blob.Bucket != "" {
		signer, err := blob.NewSigner(ctx, cfg.Blob.Bucket, cfg.Blob.CredentialsFile,
			time.Duration(cfg.Blob.URLTTLMinutes)*time.Minute)
		if err != nil {
			return nil, err
		}
		app.signer = signer
		urlSigner = signer
	} else {
		log.Warn("no blob bucket configured, sources will carry no download urls")
	}

	retriever := retrieval.New(
		&boundEmbedder{client: aiClient, cfg: ai.EmbeddingConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}},
		searchClient,
		urlSigner,
		cfg.Retrieval.MaxSearchResults,
		cfg.Retrieval.MaxChunksPerDocument,
		cfg.Retrieval.FragmentContentLimit,
		log,
	)

	var ocr *extract.OCRClient
	if cfg.Extract.OCREndpoint != "" {
		ocr = extract.NewOCRClient(cfg.Extract.OCREndpoint, cfg.Extract.OCRAPIKey, requestTimeout, retryPol)
	}
	extractor := extract.NewService(ocr, cfg.Extract.PageSize, cfg.Upload.MaxPages, log)

	var publisher chat.TurnPublisher
	if cfg.Persistence.Enabled {
		if err := app.initPersistence(ctx); err != nil {
			return nil, err
		}
		publisher = app.publisher
	}

	orchestrator := chat.NewOrchestrator(
		sessions,
		retriever,
		aiClient,
		publisher,
		ai.ChatConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		},
		cfg.Retrieval.PromptDocContentLimit,
		cfg.Retrieval.FallbackSourceMinContext,
		log,
	)

	app.Router = transporthttp.NewRouter(cfg, transporthttp.Handlers{
		Chat:    handler.NewChatHandler(orchestrator, requestTimeout),
		Upload:  handler.NewUploadHandler(extractor, sessions, cfg.MaxFileSizeBytes(), log),
		Session: handler.NewSessionHandler(sessions, log),
		Indexer: handler.NewIndexerHandler(searchClient, log),
		Health:  handler.NewHealthHandler(sessions),
	})

	return app, nil
}

// initPersistence wires the async turn audit trail: RabbitMQ for transport
// and MySQL for storage.
func (a *App) initPersistence(ctx context.Context) error {
	conn, err := rabbitmq.New(ctx, a.Config.Persistence.RabbitMQURL, a.Config.Persistence.TurnQueue)
	if err != nil {
		return err
	}
	a.rabbitConn = conn

	publisher, err := rabbitmq.NewTurnPublisher(conn, a.Config.Persistence.TurnQueue)
	if err != nil {
		return err
	}
	a.publisher = publisher

	db, err := mysql.New(ctx, a.Config.MySQLDSN())
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(&model.TurnRecord{}); err != nil {
		return fmt.Errorf("migrate turn records failed: %w", err)
	}

	a.Worker = worker.NewTurnPersistWorker(conn, a.Config.Persistence.TurnQueue,
		repository.NewTurnRepository(db), a.Log)
	return nil
}

func (a *App) Close() {
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.rabbitConn != nil {
		_ = a.rabbitConn.Close()
	}
	if a.signer != nil {
		_ = a.signer.Close()
	}
	a.Log.Sync()
}
