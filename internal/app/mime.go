package app

import (
	"log"
	"mime"
)

// Spreadsheet uploads are matched by extension when clients send a generic
// content type, so the types must be registered even on minimal images.
func init() {
	ensureMimeType(".csv", "text/csv")
	ensureMimeType(".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ensureMimeType(".xls", "application/vnd.ms-excel")
	ensureMimeType(".ods", "application/vnd.oasis.opendocument.spreadsheet")
	ensureMimeType(".webp", "image/webp")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}
