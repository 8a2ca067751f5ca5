package config

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetters(t *testing.T) {
	cfg := map[string]string{
		"PORT":    "9000",
		"BAD_INT": "nine",
		"SSL":     "true",
		"BAD":     "maybe",
		"ORIGINS": " http://a.test, ,http://b.test ",
		"EMPTY":   "",
	}

	assert.Equal(t, 9000, GetInt(cfg, "PORT", 8080))
	assert.Equal(t, 8080, GetInt(cfg, "BAD_INT", 8080))
	assert.Equal(t, 8080, GetInt(nil, "PORT", 8080))
	assert.Equal(t, "fallback", GetString(cfg, "MISSING", "fallback"))
	assert.Equal(t, "", GetString(cfg, "EMPTY", "fallback"))

	assert.True(t, GetBool(cfg, "SSL", false))
	assert.True(t, GetBool(cfg, "BAD", true))
	assert.False(t, GetBool(cfg, "MISSING", false))

	assert.Equal(t, []string{"http://a.test", "http://b.test"}, GetList(cfg, "ORIGINS", nil))
	assert.Equal(t, []string{"x"}, GetList(cfg, "EMPTY", []string{"x"}))
}

func TestSplit(t *testing.T) {
	k, v := split("A=b=c")
	assert.Equal(t, "A", k)
	assert.Equal(t, "b=c", v)

	k, v = split("FLAG")
	assert.Equal(t, "FLAG", k)
	assert.Equal(t, "", v)
}

type fakeSSM struct {
	values map[string]string
	calls  []string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	name := aws.ToString(in.Name)
	f.calls = append(f.calls, name)
	v, ok := f.values[name]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(v)}}, nil
}

func TestResolveSSM(t *testing.T) {
	client := &fakeSSM{values: map[string]string{"/showcase/jwt": "s3cret"}}
	cfg := map[string]string{
		"JWT_SECRET": "ssm:///showcase/jwt",
		"PORT":       "8080",
	}

	require.True(t, NeedsSSM(cfg))
	require.NoError(t, ResolveSSM(context.Background(), cfg, client))
	assert.Equal(t, "s3cret", cfg["JWT_SECRET"])
	assert.Equal(t, "8080", cfg["PORT"])
	assert.Equal(t, []string{"/showcase/jwt"}, client.calls)
	assert.False(t, NeedsSSM(cfg))
}

func TestResolveSSMMissingParameter(t *testing.T) {
	cfg := map[string]string{"DESCOPE_MANAGEMENT_KEY": "ssm://missing"}
	err := ResolveSSM(context.Background(), cfg, &fakeSSM{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DESCOPE_MANAGEMENT_KEY")
	assert.Equal(t, "ssm://missing", cfg["DESCOPE_MANAGEMENT_KEY"])
}
