package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DefaultVersionStage is the Secrets Manager stage read when none is set.
const DefaultVersionStage = "AWSCURRENT"

// SecretsManagerAPI is the slice of the Secrets Manager client we call.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSStore reads one Secrets Manager secret whose payload is a JSON object
// keyed by secret name. The payload is fetched on first use and cached for
// the life of the process.
type AWSStore struct {
	api          SecretsManagerAPI
	secretID     string
	versionStage string

	mu     sync.Mutex
	values map[string]string
}

// NewAWSStore wraps an existing client.
func NewAWSStore(api SecretsManagerAPI, secretID, versionStage string) *AWSStore {
	if versionStage == "" {
		versionStage = DefaultVersionStage
	}
	return &AWSStore{api: api, secretID: secretID, versionStage: versionStage}
}

// NewAWSStoreFromEnv builds a client from the default AWS credential chain.
func NewAWSStoreFromEnv(ctx context.Context, region, secretID, versionStage string) (*AWSStore, error) {
	if secretID == "" {
		return nil, fmt.Errorf("secrets: aws secret id is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secrets: load aws config: %w", err)
	}
	return NewAWSStore(secretsmanager.NewFromConfig(cfg), secretID, versionStage), nil
}

func (s *AWSStore) Get(ctx context.Context, name string) ([]byte, error) {
	values, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := values[name]
	if !ok || v == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return []byte(v), nil
}

func (s *AWSStore) load(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.values != nil {
		return s.values, nil
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(s.secretID),
		VersionStage: aws.String(s.versionStage),
	})
	if err != nil {
		return nil, fmt.Errorf("secrets: fetch %s: %w", s.secretID, err)
	}

	var payload []byte
	switch {
	case out.SecretString != nil:
		payload = []byte(*out.SecretString)
	case len(out.SecretBinary) > 0:
		payload = out.SecretBinary
	default:
		return nil, fmt.Errorf("secrets: %s has no payload", s.secretID)
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("secrets: %s is not a JSON object: %w", s.secretID, err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if str, ok := v.(string); ok {
			values[k] = str
			continue
		}
		values[k] = fmt.Sprint(v)
	}
	s.values = values
	return values, nil
}
