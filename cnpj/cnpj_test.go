package cnpj_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/docxfill/cnpj"
)

// jsonServer answers every request with status and body
// and counts the calls.
func jsonServer(
	tb testing.TB,
	status int,
	body string,
	calls *atomic.Int32,
) *httptest.Server {
	tb.Helper()

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body)) //nolint:errcheck // test server
		},
	))
	tb.Cleanup(srv.Close)

	return srv
}

func newFinder(brasil string, receita string) *cnpj.Finder {
	return &cnpj.Finder{
		Banks: []cnpj.Company{
			{Nome: "BANCO LOCAL", CNPJ: "00.000.000/0001-91"},
		},
		Client:       cnpj.NewClient(2 * time.Second),
		BrasilAPIURL: brasil,
		ReceitaWSURL: receita,
	}
}

func TestClean(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00000000000191", cnpj.Clean(" 00.000.000/0001-91 "))
}

func TestFind_local_first(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := jsonServer(t, http.StatusOK, `{}`, &calls)

	got, err := newFinder(srv.URL+"/", srv.URL+"/").
		Find(context.Background(), "00000000000191")

	require.NoError(t, err)
	assert.Equal(t, cnpj.SourceLocal, got.Source)
	assert.Equal(t, "BANCO LOCAL", got.Data.Nome)
	assert.Zero(t, calls.Load())
}

func TestFind_brasilapi(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := jsonServer(t, http.StatusOK, `{
		"razao_social": "BANCO REMOTO SA",
		"cnpj": "11222333000181",
		"logradouro": "AV PAULISTA",
		"numero": "1000",
		"municipio": "SAO PAULO",
		"uf": "SP",
		"cep": "01310100"
	}`, &calls)

	got, err := newFinder(srv.URL+"/", "").
		Find(context.Background(), "11.222.333/0001-81")

	require.NoError(t, err)
	assert.Equal(t, cnpj.Result{
		Source: cnpj.SourceBrasilAPI,
		Data: cnpj.Company{
			Nome:     "BANCO REMOTO SA",
			CNPJ:     "11222333000181",
			Endereco: "AV PAULISTA, 1000, SAO PAULO/SP, 01310100",
		},
	}, got)
}

func TestFind_falls_back_to_receitaws(t *testing.T) {
	t.Parallel()

	var brasilCalls, receitaCalls atomic.Int32

	brasil := jsonServer(t, http.StatusNotFound, `{"message":"not found"}`, &brasilCalls)
	receita := jsonServer(t, http.StatusOK, `{
		"status": "OK",
		"nome": "FINANCEIRA X",
		"cnpj": "11.222.333/0001-81",
		"logradouro": "RUA A",
		"numero": "10",
		"municipio": "RECIFE",
		"uf": "PE",
		"cep": "50000-000",
		"email": "contato@x.com",
		"telefone": "(81) 3333-4444"
	}`, &receitaCalls)

	got, err := newFinder(brasil.URL+"/", receita.URL+"/").
		Find(context.Background(), "11222333000181")

	require.NoError(t, err)
	assert.Equal(t, cnpj.SourceReceitaWS, got.Source)
	assert.Equal(t, "FINANCEIRA X", got.Data.Nome)
	assert.Equal(t, "RUA A, 10, RECIFE/PE, 50000-000", got.Data.Endereco)
	assert.Equal(t, "contato@x.com", got.Data.Email)
	assert.Equal(t, "(81) 3333-4444", got.Data.WhatsApp)
	assert.EqualValues(t, 1, brasilCalls.Load())
}

func TestFind_not_found(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	brasil := jsonServer(t, http.StatusNotFound, `{}`, &calls)
	receita := jsonServer(t, http.StatusOK, `{"status":"ERROR","message":"CNPJ inválido"}`, &calls)

	_, err := newFinder(brasil.URL+"/", receita.URL+"/").
		Find(context.Background(), "99999999999999")

	require.ErrorIs(t, err, cnpj.ErrNotFound)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFind_retries_server_errors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	brasil := jsonServer(t, http.StatusBadGateway, `{}`, &calls)

	_, err := newFinder(brasil.URL+"/", "").
		Find(context.Background(), "99999999999999")

	require.ErrorIs(t, err, cnpj.ErrNotFound)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFind_invalid(t *testing.T) {
	t.Parallel()

	_, err := newFinder("", "").Find(context.Background(), "./-")

	require.ErrorIs(t, err, cnpj.ErrInvalid)
}

func TestLoadBanks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pa := filepath.Join(dir, "bancos.json")
	require.NoError(t, os.WriteFile(pa, []byte(
		`[{"nome":"BANCO A","cnpj":"00.000.000/0001-91","endereco":"X","email":"","whatsapp":""}]`,
	), 0o600))

	got, err := cnpj.LoadBanks(pa)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "BANCO A", got[0].Nome)
}

func TestLoadBanks_invalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pa := filepath.Join(dir, "bancos.json")
	require.NoError(t, os.WriteFile(pa, []byte(`{"nome":1}`), 0o600))

	_, err := cnpj.LoadBanks(pa)

	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "loading banks"))
}

func TestRaw_passes_body_through(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := jsonServer(t, http.StatusOK, `{"razao_social":"BANCO REMOTO SA","extra":[1,2]}`, &calls)

	code, body, err := newFinder(srv.URL+"/", "").
		Raw(context.Background(), cnpj.SourceBrasilAPI, "11.222.333/0001-81")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"razao_social":"BANCO REMOTO SA","extra":[1,2]}`, string(body))
}

func TestRaw_upstream_status(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := jsonServer(t, http.StatusNotFound, `{"message":"not found"}`, &calls)

	code, _, err := newFinder("", srv.URL+"/").
		Raw(context.Background(), cnpj.SourceReceitaWS, "11222333000181")

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestRaw_errors(t *testing.T) {
	t.Parallel()

	fi := newFinder("http://127.0.0.1:1/", "")

	_, _, err := fi.Raw(context.Background(), cnpj.SourceBrasilAPI, "./-")
	require.ErrorIs(t, err, cnpj.ErrInvalid)

	_, _, err = fi.Raw(context.Background(), cnpj.SourceReceitaWS, "11222333000181")
	require.ErrorIs(t, err, cnpj.ErrUnknownSource)

	_, _, err = fi.Raw(context.Background(), cnpj.SourceLocal, "11222333000181")
	require.ErrorIs(t, err, cnpj.ErrUnknownSource)
}
