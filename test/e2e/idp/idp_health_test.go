package idp_test

import (
	"testing"

	"github.com/aussiebroadwan/nullprofile/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestLivezEndpoint(t *testing.T) {
	c := setupIDPContainer(t)
	client := authsdk.NewSDKClient(c.BaseURL)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)
}

func TestReadyzEndpoint(t *testing.T) {
	c := setupIDPContainer(t)
	client := authsdk.NewSDKClient(c.BaseURL)

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
	require.NotNil(t, health.Checks)
}
