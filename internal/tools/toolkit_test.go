package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"asic-advisor/internal/domain"
	"asic-advisor/internal/repository"
)

type stubSource struct {
	records []domain.Record
	err     error
	calls   int
}

func (s *stubSource) Records(_ context.Context) ([]domain.Record, error) {
	s.calls++
	return s.records, s.err
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestResult_MarshalsRecordsUnderFixedKey(t *testing.T) {
	r := Result{Records: []domain.Record{domain.Record(`{"model":"S19"}`)}}
	require.True(t, r.OK())
	require.JSONEq(t, `{"Retrieved Data":[{"model":"S19"}]}`, r.String())
}

func TestResult_EmptyRecordsIsArray(t *testing.T) {
	require.JSONEq(t, `{"Retrieved Data":[]}`, Result{}.String())
}

func TestResult_MarshalsError(t *testing.T) {
	r := Result{Err: errors.New("file not found")}
	require.False(t, r.OK())
	require.JSONEq(t, `{"error":"file not found"}`, r.String())
}

func TestRetriever_ReadsSourceOnEveryCall(t *testing.T) {
	src := &stubSource{records: []domain.Record{domain.Record(`{}`)}}
	r, err := NewSellerTool(src)
	require.NoError(t, err)

	r.Retrieve(context.Background())
	r.Retrieve(context.Background())
	require.Equal(t, 2, src.calls)
}

func TestRetriever_BothToolsShareErrorContract(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	sellerSrc, err := repository.NewFileSource(missing, repository.FormatJSONLines)
	require.NoError(t, err)
	buyerSrc, err := repository.NewFileSource(missing, repository.FormatJSON)
	require.NoError(t, err)

	seller, err := NewSellerTool(sellerSrc)
	require.NoError(t, err)
	buyer, err := NewBuyerTool(buyerSrc)
	require.NoError(t, err)

	for _, r := range []*Retriever{seller, buyer} {
		res := r.Retrieve(context.Background())
		require.False(t, res.OK())
		out := decode(t, res.String())
		require.Contains(t, out, "error")
		require.NotContains(t, out, RetrievedDataKey)
	}
}

func TestRetriever_ReadsRealFiles(t *testing.T) {
	dir := t.TempDir()
	sellerPath := filepath.Join(dir, "seller_data.json")
	buyerPath := filepath.Join(dir, "buyer_data.json")
	require.NoError(t, os.WriteFile(sellerPath, []byte("{\"model\":\"S19\"}\n{\"model\":\"S21\"}\n"), 0o600))
	require.NoError(t, os.WriteFile(buyerPath, []byte(`{"budget":1000,"target_hashrate":200}`), 0o600))

	sellerSrc, err := repository.NewFileSource(sellerPath, repository.FormatJSONLines)
	require.NoError(t, err)
	buyerSrc, err := repository.NewFileSource(buyerPath, repository.FormatJSON)
	require.NoError(t, err)
	seller, err := NewSellerTool(sellerSrc)
	require.NoError(t, err)
	buyer, err := NewBuyerTool(buyerSrc)
	require.NoError(t, err)

	require.JSONEq(t, `{"Retrieved Data":[{"model":"S19"},{"model":"S21"}]}`, seller.Retrieve(context.Background()).String())
	require.JSONEq(t, `{"Retrieved Data":[{"budget":1000,"target_hashrate":200}]}`, buyer.Retrieve(context.Background()).String())
}

func TestNewRetriever_Validation(t *testing.T) {
	_, err := NewRetriever("", "d", &stubSource{})
	require.Error(t, err)

	_, err = NewRetriever("x", "d", nil)
	require.Error(t, err)
}

func TestAdvisorToolkit_OrderAndSpecs(t *testing.T) {
	seller, err := NewSellerTool(&stubSource{})
	require.NoError(t, err)
	buyer, err := NewBuyerTool(&stubSource{})
	require.NoError(t, err)

	tk, err := NewAdvisorToolkit(seller, buyer)
	require.NoError(t, err)

	specs := tk.Specs()
	require.Len(t, specs, 2)
	require.Equal(t, SellerToolName, specs[0].Name)
	require.Equal(t, BuyerToolName, specs[1].Name)
	require.NotEmpty(t, specs[0].Description)
	require.Equal(t, "object", specs[0].Parameters["type"])
}

func TestToolkit_InvokeDispatchesByName(t *testing.T) {
	sellerSrc := &stubSource{records: []domain.Record{domain.Record(`{"model":"S19"}`)}}
	buyerSrc := &stubSource{err: errors.New("boom")}
	seller, err := NewSellerTool(sellerSrc)
	require.NoError(t, err)
	buyer, err := NewBuyerTool(buyerSrc)
	require.NoError(t, err)
	tk, err := NewAdvisorToolkit(seller, buyer)
	require.NoError(t, err)

	res := tk.Invoke(context.Background(), SellerToolName, "{}")
	require.True(t, res.OK())
	require.Equal(t, 1, sellerSrc.calls)
	require.Zero(t, buyerSrc.calls)

	res = tk.Invoke(context.Background(), BuyerToolName, "")
	require.EqualError(t, res.Err, "boom")
}

func TestToolkit_InvokeUnknownTool(t *testing.T) {
	tk, err := NewToolkit()
	require.NoError(t, err)
	res := tk.Invoke(context.Background(), "delete_candidate", "{}")
	require.False(t, res.OK())
	require.Contains(t, res.String(), "unknown tool")
}

func TestNewToolkit_RejectsDuplicatesAndIncompleteTools(t *testing.T) {
	h := func(context.Context, string) Result { return Result{} }
	_, err := NewToolkit(Tool{Spec: domain.ToolSpec{Name: "a"}, Handler: h}, Tool{Spec: domain.ToolSpec{Name: "a"}, Handler: h})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")

	_, err = NewToolkit(Tool{Spec: domain.ToolSpec{Name: "a"}})
	require.Error(t, err)

	_, err = NewAdvisorToolkit(nil, nil)
	require.Error(t, err)
}
