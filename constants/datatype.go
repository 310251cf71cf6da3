package constants

// DataType is the kind of a persisted extracted record.
type DataType string

const (
	DataTypeSales         DataType = "sales"
	DataTypeInventory     DataType = "inventory"
	DataTypeInvoice       DataType = "invoice"
	DataTypeReceipt       DataType = "receipt"
	DataTypeBankStatement DataType = "bank_statement"
	DataTypeUnknown       DataType = "unknown"
)

var dataTypes = map[FileType]DataType{
	FileTypeInvoiceImage:       DataTypeInvoice,
	FileTypePurchaseOrderImage: DataTypeInvoice,
	FileTypeReceiptImage:       DataTypeReceipt,
	FileTypeSalesCSV:           DataTypeSales,
	FileTypeInventoryCSV:       DataTypeInventory,
	FileTypeBankStatementPDF:   DataTypeBankStatement,
}

// DataTypeFor maps a declared file type to the stored record kind.
func DataTypeFor(f FileType) DataType {
	if dt, ok := dataTypes[f]; ok {
		return dt
	}
	return DataTypeUnknown
}
