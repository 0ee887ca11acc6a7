package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/opensearch-project/opensearch-go/v2"
	requestsigner "github.com/opensearch-project/opensearch-go/v2/signer/awsv2"

	"medorbis-gateway/config"
	"medorbis-gateway/logging"
	"medorbis-gateway/rag"
	"medorbis-gateway/search"
	"medorbis-gateway/service"
)

const (
	secretOpenAIKey   = "openai-api-key"
	secretOSUsername  = "os-username"
	secretOSPassword  = "os-password"
	openSearchHostEnv = "OPENSEARCH_HOST"
)

type secretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type lambdaHandler struct {
	adapter *ginadapter.GinLambda
	logger  *slog.Logger
}

// handler replays an API Gateway proxy event through the same router the gin server uses.
func (l *lambdaHandler) handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := l.adapter.ProxyWithContext(ctx, request)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to proxy request", slog.String("method", request.HTTPMethod), slog.String("path", request.Path), slog.Any("error", err))
	}
	return resp, err
}

// applySecrets fills in credentials kept in Secrets Manager. Missing secrets leave the
// corresponding backend to its environment configuration.
func applySecrets(ctx context.Context, sm secretGetter, cfg *config.Config, logger *slog.Logger) (osUsername, osPassword string) {
	get := func(id string) string {
		out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)})
		if err != nil || out.SecretString == nil {
			logger.WarnContext(ctx, "secret unavailable", slog.String("secret", id), slog.Any("error", err))
			return ""
		}
		return *out.SecretString
	}

	if key := get(secretOpenAIKey); key != "" {
		cfg.LLM.OpenAI.APIKey = key
		if cfg.Embedding.OpenAI.APIKey == "" {
			cfg.Embedding.OpenAI.APIKey = key
		}
	}
	return get(secretOSUsername), get(secretOSPassword)
}

func getOpensearchClient(awsCfg aws.Config, host, username, password string) (*opensearch.Client, error) {
	signer, err := requestsigner.NewSignerWithService(awsCfg, "es")
	if err != nil {
		return nil, fmt.Errorf("failed to create request signer: %w", err)
	}

	return opensearch.NewClient(opensearch.Config{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: false},
		},
		Addresses: []string{"https://" + host},
		Username:  username,
		Password:  password,
		Signer:    signer,
	})
}

func newHandler(ctx context.Context) (*lambdaHandler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	username, password := applySecrets(ctx, secretsmanager.NewFromConfig(awsCfg), cfg, logger)

	var searcher search.Searcher
	if host := os.Getenv(openSearchHostEnv); host != "" {
		client, err := getOpensearchClient(awsCfg, host, username, password)
		if err != nil {
			return nil, fmt.Errorf("failed to create opensearch client: %w", err)
		}
		searcher = search.NewOpenSearchWithClient(client, cfg.Vector.OpenSearch.Index)
	} else if searcher, err = search.FromConfig(cfg.Vector, nil); err != nil {
		logger.WarnContext(ctx, "vector search disabled", slog.Any("error", err))
		searcher = nil
	}

	pipeline, err := rag.FromConfigWithSearcher(ctx, cfg, searcher, nil, logger)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	return &lambdaHandler{adapter: ginadapter.New(service.NewRouter(pipeline, logger)), logger: logger}, nil
}

func main() {
	h, err := newHandler(context.Background())
	if err != nil {
		slog.Error("failed to start lambda", slog.Any("error", err))
		os.Exit(1)
	}
	lambda.Start(h.handler)
}
