package crypto

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/treasury-backend/internal/errs"
)

func TestLocalRoundTrip(t *testing.T) {
	v, err := NewLocal([]byte("server-secret"))
	require.NoError(t, err)
	ctx := context.Background()

	for _, plain := range []string{"", `{"apiKey":"wave_sn_prod_x"}`, strings.Repeat("é", 500)} {
		ct, err := v.Encrypt(ctx, plain)
		require.NoError(t, err)
		require.NotContains(t, ct, "wave_sn")

		got, err := v.Decrypt(ctx, ct)
		require.NoError(t, err)
		require.Equal(t, plain, got)
	}
}

func TestLocalNonceIsRandom(t *testing.T) {
	v, _ := NewLocal([]byte("server-secret"))
	a, _ := v.Encrypt(context.Background(), "same")
	b, _ := v.Encrypt(context.Background(), "same")
	require.NotEqual(t, a, b)
}

func TestLocalSameSecretSameKey(t *testing.T) {
	v1, _ := NewLocal([]byte("server-secret"))
	v2, _ := NewLocal([]byte("server-secret"))
	ct, _ := v1.Encrypt(context.Background(), "payload")

	got, err := v2.Decrypt(context.Background(), ct)
	require.NoError(t, err)
	require.Equal(t, "payload", got)
}

func TestLocalRejectsBadInput(t *testing.T) {
	v, _ := NewLocal([]byte("server-secret"))
	other, _ := NewLocal([]byte("another-secret"))
	ctx := context.Background()

	ct, _ := v.Encrypt(ctx, "payload")
	raw, _ := base64.StdEncoding.DecodeString(ct)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	cases := map[string]func() error{
		"not base64": func() error { _, err := v.Decrypt(ctx, "%%%"); return err },
		"too short":  func() error { _, err := v.Decrypt(ctx, base64.StdEncoding.EncodeToString([]byte("abc"))); return err },
		"tampered":   func() error { _, err := v.Decrypt(ctx, tampered); return err },
		"wrong key":  func() error { _, err := other.Decrypt(ctx, ct); return err },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			var cryptoErr *errs.CryptoError
			require.ErrorAs(t, fn(), &cryptoErr)
		})
	}
}

func TestLocalRequiresSecret(t *testing.T) {
	_, err := NewLocal(nil)
	var cryptoErr *errs.CryptoError
	require.ErrorAs(t, err, &cryptoErr)
}

type fakeKMS struct {
	fail bool
}

func (f *fakeKMS) Encrypt(ctx context.Context, req *kmspb.EncryptRequest, opts ...gax.CallOption) (*kmspb.EncryptResponse, error) {
	if f.fail {
		return nil, errors.New("permission denied")
	}
	out := []byte(req.Name + ":")
	return &kmspb.EncryptResponse{Ciphertext: append(out, req.Plaintext...)}, nil
}

func (f *fakeKMS) Decrypt(ctx context.Context, req *kmspb.DecryptRequest, opts ...gax.CallOption) (*kmspb.DecryptResponse, error) {
	if f.fail {
		return nil, errors.New("permission denied")
	}
	return &kmspb.DecryptResponse{Plaintext: []byte(strings.TrimPrefix(string(req.Ciphertext), req.Name+":"))}, nil
}

func TestKMSRoundTrip(t *testing.T) {
	v := NewKMS(&fakeKMS{}, "projects/p/locations/l/keyRings/r/cryptoKeys/k")
	ct, err := v.Encrypt(context.Background(), "secret")
	require.NoError(t, err)

	got, err := v.Decrypt(context.Background(), ct)
	require.NoError(t, err)
	require.Equal(t, "secret", got)
}

func TestKMSErrorsAreCryptoErrors(t *testing.T) {
	v := NewKMS(&fakeKMS{fail: true}, "k")
	var cryptoErr *errs.CryptoError

	_, err := v.Encrypt(context.Background(), "secret")
	require.ErrorAs(t, err, &cryptoErr)

	_, err = v.Decrypt(context.Background(), "not base64!")
	require.ErrorAs(t, err, &cryptoErr)
}

var _ Vault = (*local)(nil)
var _ Vault = (*kms)(nil)
