package export

import (
	"encoding/csv"
	"io"
)

func writeCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(doc.Header()); err != nil {
		return err
	}
	for _, r := range doc.Records {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
