package llm

import (
	"strings"

	"github.com/joseph-ayodele/store-extractor/constants"
)

// The prompt text is the output contract for model calls: field names, value
// types and the null policy below must stay in step with schema.go.

var invoicePrompt = strings.Join([]string{
	"Extract structured invoice data from this image.",
	"",
	"Return ONLY valid JSON with this exact structure (no other text):",
	`{`,
	`  "supplier_name": "string - name of the supplier/vendor",`,
	`  "invoice_date": "YYYY-MM-DD format",`,
	`  "invoice_number": "string - invoice number if visible, otherwise null",`,
	`  "items": [`,
	`    {`,
	`      "item_name": "string - product/service name",`,
	`      "quantity": number,`,
	`      "unit_price": number,`,
	`      "gst_rate": number (0-28, GST percentage)`,
	`    }`,
	`  ],`,
	`  "total_amount": number - total invoice amount including GST,`,
	`  "gst_amount": number - total GST amount if visible, otherwise null,`,
	`  "payment_terms": "string - payment terms if visible, otherwise null"`,
	`}`,
	"",
	"If you cannot find a field, use null. All numbers should be numeric, not strings.",
}, "\n")

var receiptPrompt = strings.Join([]string{
	"Extract structured receipt data from this image.",
	"",
	"Return ONLY valid JSON with this exact structure (no other text):",
	`{`,
	`  "merchant_name": "string - store/merchant name",`,
	`  "date": "YYYY-MM-DD format",`,
	`  "total_amount": number - total amount paid,`,
	`  "items": [`,
	`    {`,
	`      "name": "string - item name",`,
	`      "price": number`,
	`    }`,
	`  ],`,
	`  "payment_method": "string - payment method (UPI/Card/Cash) if visible, otherwise null"`,
	`}`,
	"",
	"If you cannot find a field, use null.",
}, "\n")

var bankStatementPrompt = strings.Join([]string{
	"Extract bank statement data from this text.",
	"",
	"Return ONLY valid JSON with this exact structure (no other text):",
	`{`,
	`  "account_number": "string",`,
	`  "statement_period": "string",`,
	`  "opening_balance": number,`,
	`  "closing_balance": number,`,
	`  "transactions": [`,
	`    {`,
	`      "date": "YYYY-MM-DD",`,
	`      "description": "string",`,
	`      "debit": number or null,`,
	`      "credit": number or null,`,
	`      "balance": number`,
	`    }`,
	`  ]`,
	`}`,
}, "\n")

const genericPrompt = "Extract all structured information from this document. " +
	"Return ONLY valid JSON with appropriate fields based on the content, no other text."

// PromptFor returns the extraction prompt for a declared file type. Unknown
// types get a schema-free generic prompt.
func PromptFor(fileType constants.FileType) string {
	switch fileType {
	case constants.FileTypeInvoiceImage, constants.FileTypePurchaseOrderImage:
		return invoicePrompt
	case constants.FileTypeReceiptImage:
		return receiptPrompt
	case constants.FileTypeBankStatementPDF:
		return bankStatementPrompt
	default:
		return genericPrompt
	}
}
