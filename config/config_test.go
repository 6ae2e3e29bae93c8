package config

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetters(t *testing.T) {
	cfg := map[string]string{
		"PORT":             "9090",
		"BAD_INT":          "nine",
		"EMPTY":            "",
		"AUTO_MIGRATE":     "TRUE",
		"TIMEOUT":          "15",
		"ACCEPTED_ORIGINS": " http://a.test, ,http://b.test ",
	}

	assert.Equal(t, "9090", GetString(cfg, "PORT", "8080"))
	assert.Equal(t, "8080", GetString(cfg, "EMPTY", "8080"))
	assert.Equal(t, "x", GetString(nil, "PORT", "x"))
	assert.Equal(t, 9090, GetInt(cfg, "PORT", 1))
	assert.Equal(t, 1, GetInt(cfg, "BAD_INT", 1))
	assert.True(t, GetBool(cfg, "AUTO_MIGRATE", false))
	assert.True(t, GetBool(cfg, "MISSING", true))
	assert.Equal(t, 15*time.Second, GetSeconds(cfg, "TIMEOUT", 180))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, GetList(cfg, "ACCEPTED_ORIGINS"))
	assert.Nil(t, GetList(cfg, "MISSING"))
}

func TestSplit(t *testing.T) {
	k, v := split("DSN=host=db user=x")
	assert.Equal(t, "DSN", k)
	assert.Equal(t, "host=db user=x", v)

	k, v = split("FLAG")
	assert.Equal(t, "FLAG", k)
	assert.Equal(t, "", v)
}

type fakeParameters struct {
	pages [][]types.Parameter
	calls int
}

func (f *fakeParameters) GetParametersByPath(_ context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	out := &ssm.GetParametersByPathOutput{Parameters: f.pages[f.calls]}
	f.calls++
	if f.calls < len(f.pages) {
		out.NextToken = aws.String("more")
	}
	return out, nil
}

func TestMergeParameters(t *testing.T) {
	client := &fakeParameters{pages: [][]types.Parameter{
		{{Name: aws.String("/inkwell/prod/JWT_SECRET"), Value: aws.String("from-ssm")}},
		{{Name: aws.String("/inkwell/prod/PORT"), Value: aws.String("1234")}},
	}}
	cfg := map[string]string{"PORT": "8080"}

	require.NoError(t, mergeParameters(context.Background(), client, cfg, "/inkwell/prod"))

	assert.Equal(t, 2, client.calls)
	assert.Equal(t, "from-ssm", cfg["JWT_SECRET"])
	assert.Equal(t, "8080", cfg["PORT"], "environment wins over ssm")
}
