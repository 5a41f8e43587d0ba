package banking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/treasury-backend/internal/errs"
)

func TestCredentialsRedactEverywhere(t *testing.T) {
	creds := Credentials{"apiKey": "wave_sn_prod_secret"}

	out := []string{
		creds.String(),
		fmt.Sprintf("%v %+v %#v %s", creds, creds, creds, creds),
	}
	b, err := json.Marshal(struct{ C Credentials }{creds})
	require.NoError(t, err)
	out = append(out, string(b))

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("resolved", "creds", creds)
	out = append(out, buf.String())

	for _, s := range out {
		require.NotContains(t, s, "wave_sn_prod_secret")
	}
}

func TestCredentialsSealRoundTrip(t *testing.T) {
	creds := Credentials{"clientId": "id", "clientSecret": "s3cret"}

	sealed, err := creds.Seal()
	require.NoError(t, err)
	require.Contains(t, sealed, "s3cret")

	back, err := ParseCredentials(sealed)
	require.NoError(t, err)
	require.Equal(t, "s3cret", back.Get("clientSecret"))
}

func TestCredentialsRequire(t *testing.T) {
	err := Credentials{"apiUser": "u", "apiKey": "  "}.Require("subscriptionKey", "apiUser", "apiKey")

	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	require.True(t, strings.HasSuffix(verr.Message, "apiKey, subscriptionKey"), verr.Message)
}

func TestParseCredentialsRejectsNonObject(t *testing.T) {
	_, err := ParseCredentials(`["a"]`)
	require.Error(t, err)
}
