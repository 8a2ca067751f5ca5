package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// SSMPrefix marks a value that lives in AWS SSM Parameter Store,
// e.g. JWT_SECRET=ssm:///showcase/prod/jwt-secret.
const SSMPrefix = "ssm://"

// ParameterGetter is the part of the SSM client used to resolve secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewSSMClient builds an SSM client from the default AWS credential chain.
func NewSSMClient(ctx context.Context, region string) (*ssm.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return ssm.NewFromConfig(cfg), nil
}

// NeedsSSM reports whether any value in config references SSM.
func NeedsSSM(config map[string]string) bool {
	for _, v := range config {
		if strings.HasPrefix(v, SSMPrefix) {
			return true
		}
	}
	return false
}

// ResolveSSM replaces every ssm:// value in config with the decrypted parameter.
// It stops at the first parameter that cannot be read.
func ResolveSSM(ctx context.Context, config map[string]string, client ParameterGetter) error {
	for key, v := range config {
		if !strings.HasPrefix(v, SSMPrefix) {
			continue
		}
		name := strings.TrimPrefix(v, SSMPrefix)
		out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(name),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("resolving %s from ssm parameter %q: %w", key, name, err)
		}
		if out.Parameter == nil {
			return fmt.Errorf("ssm parameter %q for %s has no value", name, key)
		}
		config[key] = aws.ToString(out.Parameter.Value)
		log.Debug().Str("key", key).Msg("resolved config value from ssm")
	}
	return nil
}
