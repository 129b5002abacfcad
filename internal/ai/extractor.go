package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// ExtractorService pulls structured accounting data out of document text.
type ExtractorService interface {
	ClassifyDocument(ctx context.Context, text string) (*DocumentClassification, error)
	ExtractPayroll(ctx context.Context, text string) (*PayrollExtraction, error)
	ExtractBankTransactions(ctx context.Context, text string) (*BankStatementExtraction, error)
}

// DocumentClassification is the model's judgement of what a document is.
type DocumentClassification struct {
	DocumentType string  `json:"document_type" jsonschema:"enum=invoice,enum=bill,enum=payroll,enum=bank_statement,enum=other"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

// PayrollExtractionLine is one extracted payroll journal line. Amounts are
// exact decimal strings; absent sides are "0".
type PayrollExtractionLine struct {
	Label  string `json:"label"`
	Debit  string `json:"debit"`
	Credit string `json:"credit"`
}

// PayrollExtraction is the structured content of a payroll report.
type PayrollExtraction struct {
	Period string                  `json:"period"`
	Lines  []PayrollExtractionLine `json:"lines"`
}

// BankTransaction is one extracted statement movement.
type BankTransaction struct {
	Date         string `json:"date"`
	Description  string `json:"description"`
	Amount       string `json:"amount"`
	Direction    string `json:"direction" jsonschema:"enum=in,enum=out"`
	Counterparty string `json:"counterparty"`
}

// BankStatementExtraction is the structured content of a bank statement.
type BankStatementExtraction struct {
	AccountName  string            `json:"account_name"`
	Transactions []BankTransaction `json:"transactions"`
}

type Extractor struct {
	client *openai.Client
}

func NewExtractor(apiKey string) *Extractor {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Extractor{client: &client}
}

func (e *Extractor) ClassifyDocument(ctx context.Context, text string) (*DocumentClassification, error) {
	prompt := fmt.Sprintf(`You are an expert bookkeeper.
Classify the following document as one of: invoice, bill, payroll, bank_statement, other.
Provide a confidence score (0.0-1.0) and brief reasoning.

Document:
%s`, text)

	var result DocumentClassification
	if err := e.structured(ctx, prompt, "document_classification",
		"Classification of a business document", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (e *Extractor) ExtractPayroll(ctx context.Context, text string) (*PayrollExtraction, error) {
	prompt := fmt.Sprintf(`You are an expert payroll accountant.
Extract the payroll journal from the following payroll report.
Rules:
1. Period must be kept exactly as written in the document (e.g. "202506 - JUNE").
2. Each line has a label and exactly one of debit or credit; the other side must be "0".
3. Amounts must be exact decimal strings (e.g. "1250.00").
4. Include every line in the report, including employer contributions and net wages.

Document:
%s`, text)

	var result PayrollExtraction
	if err := e.structured(ctx, prompt, "payroll_extraction",
		"Payroll journal lines extracted from a payroll report", &result); err != nil {
		return nil, err
	}
	if len(result.Lines) == 0 {
		return nil, fmt.Errorf("no payroll lines extracted")
	}
	return &result, nil
}

func (e *Extractor) ExtractBankTransactions(ctx context.Context, text string) (*BankStatementExtraction, error) {
	prompt := fmt.Sprintf(`You are an expert bookkeeper.
Extract every transaction from the following bank statement.
Rules:
1. Dates must be in YYYY-MM-DD format.
2. Amounts must be exact positive decimal strings; use direction "in" for money received, "out" for money paid.
3. Keep descriptions as written.

Document:
%s`, text)

	var result BankStatementExtraction
	if err := e.structured(ctx, prompt, "bank_statement_extraction",
		"Transactions extracted from a bank statement", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// structured sends the prompt with a JSON schema reflected from out's type
// and decodes the response into out.
func (e *Extractor) structured(ctx context.Context, prompt, name, description string, out any) error {
	schemaJSON, err := json.Marshal(generateSchema(out))
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        name,
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt(description),
				},
			},
		},
	}

	resp, err := e.client.Responses.New(ctx, params)
	if err != nil {
		return fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return fmt.Errorf("empty response content")
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to parse completion: %w", err)
	}
	return nil
}

func generateSchema(v any) interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}
