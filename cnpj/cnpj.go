package cnpj

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
)

// Sources reported in Result.Source.
const (
	SourceLocal     = "local"
	SourceBrasilAPI = "brasilapi"
	SourceReceitaWS = "receitaws"
)

// Default remote endpoints; the cleaned CNPJ is appended.
const (
	DefaultBrasilAPIURL = "https://brasilapi.com.br/api/cnpj/v1/"
	DefaultReceitaWSURL = "https://www.receitaws.com.br/v1/cnpj/"
)

var (
	// ErrNotFound is returned when no source knows the
	// CNPJ.
	ErrNotFound = errors.New("cnpj not found in any source")

	// ErrInvalid is returned for an input without digits.
	ErrInvalid = errors.New("invalid cnpj")

	// ErrUnknownSource is returned by Raw for a source with
	// no configured endpoint.
	ErrUnknownSource = errors.New("unknown cnpj source")
)

// Company is the data filled into petition templates.
type Company struct {
	Nome     string `json:"nome"`
	CNPJ     string `json:"cnpj"`
	Endereco string `json:"endereco"`
	Email    string `json:"email"`
	WhatsApp string `json:"whatsapp"`
}

// Result pairs a company with the source that provided it.
type Result struct {
	Source string  `json:"source"`
	Data   Company `json:"data"`
}

type brasilAPIResponse struct {
	RazaoSocial string `json:"razao_social"`
	CNPJ        string `json:"cnpj"`
	Logradouro  string `json:"logradouro"`
	Numero      string `json:"numero"`
	Municipio   string `json:"municipio"`
	UF          string `json:"uf"`
	CEP         string `json:"cep"`
}

type receitaWSResponse struct {
	Status     string `json:"status"`
	Nome       string `json:"nome"`
	CNPJ       string `json:"cnpj"`
	Logradouro string `json:"logradouro"`
	Numero     string `json:"numero"`
	Municipio  string `json:"municipio"`
	UF         string `json:"uf"`
	CEP        string `json:"cep"`
	Email      string `json:"email"`
	Telefone   string `json:"telefone"`
}

// Finder looks companies up across its sources.
type Finder struct {
	Banks        []Company
	Client       *resty.Client
	BrasilAPIURL string
	ReceitaWSURL string
}

// NewFinder returns a Finder over banks using the public
// endpoints.
func NewFinder(banks []Company) *Finder {
	return &Finder{
		Banks:        banks,
		Client:       NewClient(10 * time.Second),
		BrasilAPIURL: DefaultBrasilAPIURL,
		ReceitaWSURL: DefaultReceitaWSURL,
	}
}

// NewClient returns a resty client decoding with go-json
// and retrying transient upstream failures.
func NewClient(timeout time.Duration) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second)

	client.AddRetryCondition(retryCondition)

	return client
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	return code >= 500 || code == 429
}

// Clean drops the punctuation of a formatted CNPJ.
func Clean(cnpj string) string {
	return strings.NewReplacer(".", "", "/", "", "-", "").Replace(
		strings.TrimSpace(cnpj),
	)
}

// LoadBanks reads a JSON array of companies.
func LoadBanks(path string) ([]Company, error) {
	const errCtx = "loading banks"

	content, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var banks []Company
	if err := json.Unmarshal(content, &banks); err != nil {
		return nil, fmt.Errorf("%s: decoding %s: %w", errCtx, path, err)
	}

	return banks, nil
}

// Find returns the company registered under cnpj.
func (f *Finder) Find(ctx context.Context, cnpj string) (Result, error) {
	const errCtx = "finding cnpj"

	cleaned := Clean(cnpj)
	if cleaned == "" {
		return Result{}, fmt.Errorf("%s: %w", errCtx, ErrInvalid)
	}

	for _, bank := range f.Banks {
		if Clean(bank.CNPJ) == cleaned {
			return Result{Source: SourceLocal, Data: bank}, nil
		}
	}

	if f.Client != nil && f.BrasilAPIURL != "" {
		company, err := f.brasilAPI(ctx, cleaned)
		if err == nil {
			return Result{Source: SourceBrasilAPI, Data: company}, nil
		}

		slog.Info("brasilapi lookup failed, trying receitaws", "error", err)
	}

	if f.Client != nil && f.ReceitaWSURL != "" {
		company, err := f.receitaWS(ctx, cleaned)
		if err == nil {
			return Result{Source: SourceReceitaWS, Data: company}, nil
		}

		slog.Info("receitaws lookup failed", "error", err)
	}

	return Result{}, fmt.Errorf("%s: %s: %w", errCtx, cleaned, ErrNotFound)
}

// Raw queries one remote source and returns its status
// code and body untouched.
func (f *Finder) Raw(
	ctx context.Context,
	source string,
	cnpj string,
) (int, []byte, error) {
	const errCtx = "querying cnpj source"

	cleaned := Clean(cnpj)
	if cleaned == "" {
		return 0, nil, fmt.Errorf("%s: %w", errCtx, ErrInvalid)
	}

	var base string

	switch source {
	case SourceBrasilAPI:
		base = f.BrasilAPIURL
	case SourceReceitaWS:
		base = f.ReceitaWSURL
	}

	if f.Client == nil || base == "" {
		return 0, nil, fmt.Errorf("%s: %w: %s", errCtx, ErrUnknownSource, source)
	}

	resp, err := f.Client.R().SetContext(ctx).Get(base + cleaned)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %s: %w", errCtx, source, err)
	}

	return resp.StatusCode(), resp.Body(), nil
}

func (f *Finder) brasilAPI(ctx context.Context, cnpj string) (Company, error) {
	var body brasilAPIResponse

	if err := f.get(ctx, f.BrasilAPIURL+cnpj, &body); err != nil {
		return Company{}, err
	}

	return Company{
		Nome:     body.RazaoSocial,
		CNPJ:     body.CNPJ,
		Endereco: address(body.Logradouro, body.Numero, body.Municipio, body.UF, body.CEP),
	}, nil
}

func (f *Finder) receitaWS(ctx context.Context, cnpj string) (Company, error) {
	var body receitaWSResponse

	if err := f.get(ctx, f.ReceitaWSURL+cnpj, &body); err != nil {
		return Company{}, err
	}

	// ReceitaWS answers 200 with status ERROR for unknown
	// numbers.
	if strings.EqualFold(body.Status, "ERROR") {
		return Company{}, fmt.Errorf("receitaws: %w", ErrNotFound)
	}

	return Company{
		Nome:     body.Nome,
		CNPJ:     body.CNPJ,
		Endereco: address(body.Logradouro, body.Numero, body.Municipio, body.UF, body.CEP),
		Email:    body.Email,
		WhatsApp: body.Telefone,
	}, nil
}

func (f *Finder) get(ctx context.Context, url string, result any) error {
	resp, err := f.Client.R().
		SetContext(ctx).
		SetResult(result).
		Get(url)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}

	if resp.IsError() {
		return fmt.Errorf(
			"requesting %s: unexpected status %d", url, resp.StatusCode(),
		)
	}

	return nil
}

func address(street, number, city, state, zip string) string {
	return fmt.Sprintf("%s, %s, %s/%s, %s", street, number, city, state, zip)
}
