package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResourceName(t *testing.T) {
	for _, name := range []ResourceName{ResourceAccount, ResourceDeployments, ResourceDatasets, ResourceReports} {
		got, err := ParseResourceName(name.String())
		require.NoError(t, err)
		assert.Equal(t, name, got)
		assert.True(t, got.Valid())
	}

	got, err := ParseResourceName("DataSets")
	require.NoError(t, err)
	assert.Equal(t, ResourceDatasets, got)

	for _, bad := range []string{"", "dataset", "account/", "feedback"} {
		_, err := ParseResourceName(bad)
		assert.Error(t, err, bad)
	}

	assert.False(t, ResourceName(0).Valid())
	assert.Equal(t, "ResourceName(9)", ResourceName(9).String())
}

func TestParseSubResourceName(t *testing.T) {
	got, err := ParseSubResourceName("")
	require.NoError(t, err)
	assert.Equal(t, SubResourceNone, got)

	got, err = ParseSubResourceName("Fields")
	require.NoError(t, err)
	assert.Equal(t, SubResourceFields, got)

	got, err = ParseSubResourceName("feedback")
	require.NoError(t, err)
	assert.Equal(t, SubResourceFeedback, got)

	_, err = ParseSubResourceName("feedbacks")
	assert.Error(t, err)

	assert.False(t, SubResourceName(7).Valid())
}

func TestCredentials(t *testing.T) {
	assert.NoError(t, Credentials{PublicKey: "pub", PrivateKey: "priv"}.Validate())
	assert.ErrorContains(t, Credentials{PrivateKey: "priv"}.Validate(), "public key")
	assert.ErrorContains(t, Credentials{PublicKey: "pub"}.Validate(), "private key")

	assert.Equal(t, "******_KEY", Credentials{PublicKey: "PUBLIC_KEY"}.Masked())
	assert.Equal(t, "***", Credentials{PublicKey: "abc"}.Masked())
}

func TestEnumHelpers(t *testing.T) {
	assert.Equal(t, "DELETE", MethodDelete.HTTP())
	assert.Equal(t, Version2_0_0, LatestVersion)
	assert.False(t, VerbosityQuiet.Paginates())
	assert.True(t, VerbosityNormal.Paginates())
	assert.True(t, VerbosityFull.Paginates())
}
