// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package exchange moves respondents and answers in and out as CSV or XLSX.

Export builds a Table from store rows and writes it:

	t := exchange.ResponsesTable(records)
	err := t.Write(w, exchange.FormatXLSX)

Answers are written as JSON, so a responses export can be imported back
unchanged. Import reads an uploaded file and upserts by phone key:

	t, err := exchange.ReadTable(file, exchange.FormatCSV)
	report, err := exchange.NewImporter(st, cfg.Phone).Import(ctx, exchange.KindResponses, t)

Rows with an invalid phone, an unknown respondent or question, or a value
that does not fit the question are skipped and listed in the report.
Imported answers are finalized and the phases they belong to are marked
completed.
*/
package exchange
