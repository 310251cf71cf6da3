package constants

import (
	"path/filepath"
	"strings"
)

// FileType is the declared type tag of an uploaded file.
type FileType string

const (
	FileTypeSalesCSV           FileType = "sales_csv"
	FileTypeInventoryCSV       FileType = "inventory_csv"
	FileTypeInvoiceImage       FileType = "invoice_image"
	FileTypeReceiptImage       FileType = "receipt_image"
	FileTypePurchaseOrderImage FileType = "purchase_order_image"
	FileTypeBankStatementPDF   FileType = "bank_statement_pdf"
)

// FileTypes holds every declared type the pipeline routes.
var FileTypes = []FileType{
	FileTypeSalesCSV,
	FileTypeInventoryCSV,
	FileTypeInvoiceImage,
	FileTypeReceiptImage,
	FileTypePurchaseOrderImage,
	FileTypeBankStatementPDF,
}

// aliases accepted on input in addition to the wire values.
var fileTypeAliases = map[string]FileType{
	"sales_table":             FileTypeSalesCSV,
	"inventory_table":         FileTypeInventoryCSV,
	"bank_statement_document": FileTypeBankStatementPDF,
}

// ParseFileType normalizes a declared type. Unknown values are returned as-is
// so the dispatcher can reject them with the original tag in the message.
func ParseFileType(s string) FileType {
	norm := strings.ToLower(strings.TrimSpace(s))
	if ft, ok := fileTypeAliases[norm]; ok {
		return ft
	}
	return FileType(norm)
}

// IsTabular reports whether the type is parsed without a model call.
func (f FileType) IsTabular() bool {
	return f == FileTypeSalesCSV || f == FileTypeInventoryCSV
}

// IsImage reports whether the type goes through the vision path.
func (f FileType) IsImage() bool {
	switch f {
	case FileTypeInvoiceImage, FileTypeReceiptImage, FileTypePurchaseOrderImage:
		return true
	}
	return false
}

// IsDocument reports whether the type goes through the text path.
func (f FileType) IsDocument() bool {
	return f == FileTypeBankStatementPDF
}

// ExtractionMethod records how a result was produced.
type ExtractionMethod string

const (
	MethodTableParse ExtractionMethod = "table_parse"
	MethodModelCall  ExtractionMethod = "model_call"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"pdf":  "application/pdf",
}

// MimeTypeFor infers a MIME type from the file name extension only.
func MimeTypeFor(name string) string {
	if mt, ok := mimeTypes[NormalizeExt(filepath.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// AllowedExtensions are the file extensions picked up from local directories.
var AllowedExtensions = map[string]struct{}{
	"csv":  {},
	"tsv":  {},
	"txt":  {},
	"xlsx": {},
	"pdf":  {},
	"docx": {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}
