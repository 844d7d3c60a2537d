package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestInitializeTransaction(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq InitializeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Authorization URL created",
			"data": {
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code": "abc123",
				"reference": "EXL-ABCDEF123456"
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_x", zerolog.Nop())
	result, err := client.InitializeTransaction(context.Background(), InitializeRequest{
		Email:     "coordinator@example.com",
		Amount:    150000,
		Reference: "EXL-ABCDEF123456",
	})

	require.NoError(t, err)
	require.Equal(t, "Bearer sk_test_x", gotAuth)
	require.Equal(t, "/transaction/initialize", gotPath)
	require.Equal(t, int64(150000), gotReq.Amount)
	require.Equal(t, "https://checkout.paystack.com/abc123", result.AuthorizationURL)
	require.Equal(t, "EXL-ABCDEF123456", result.Reference)
}

func TestVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction/verify/EXL-ABCDEF123456", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"id": 4099260516,
				"reference": "EXL-ABCDEF123456",
				"status": "success",
				"amount": 150000,
				"currency": "NGN",
				"channel": "card"
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_x", zerolog.Nop())
	data, err := client.VerifyTransaction(context.Background(), "EXL-ABCDEF123456")

	require.NoError(t, err)
	require.Equal(t, StatusSuccess, data.Status)
	require.Equal(t, int64(150000), data.Amount)
	require.Equal(t, "EXL-ABCDEF123456", data.Reference)
}

func TestVerifyTransactionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status": false, "message": "Transaction reference not found"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_x", zerolog.Nop())
	_, err := client.VerifyTransaction(context.Background(), "ORDER-missing")

	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestClientMapsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status": false, "message": "Invalid key"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test_wrong", zerolog.Nop())
	_, err := client.InitializeTransaction(context.Background(), InitializeRequest{
		Email: "a@b.c", Amount: 1000, Reference: "EXL-AAAAAAAAAAAA",
	})

	require.ErrorIs(t, err, ErrUnauthorized)
}
