// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package exchange

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/phone"
	"github.com/danielhkuo/panelsurvey/store"
	"github.com/danielhkuo/panelsurvey/testutil"
)

func TestParse(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindRespondents, k)
	k, err = ParseKind("Responses")
	require.NoError(t, err)
	assert.Equal(t, KindResponses, k)
	_, err = ParseKind("ballots")
	assert.ErrorIs(t, err, ErrUnknownKind)

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	f, err = FormatFromFilename("Export.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	_, err = FormatFromFilename("data.xls")
	assert.Error(t, err)

	assert.Equal(t, "responses_2025-03-01.xlsx",
		Filename(KindResponses, FormatXLSX, time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)))
}

func TestTableRoundTrip(t *testing.T) {
	in := Table{
		Header: []string{"phone_normalized", "answer"},
		Rows: [][]string{
			{"6281234567890", `["Funding","Talent"]`},
			{"6281234567891", `He said "hi", then left`},
		},
	}

	for _, f := range []Format{FormatCSV, FormatXLSX} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, in.Write(&buf, f))

			out, err := ReadTable(&buf, f)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestReadTable_Empty(t *testing.T) {
	_, err := ReadTable(strings.NewReader("phone_normalized,answer\n\n"), FormatCSV)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ReadTable(strings.NewReader("not a workbook"), FormatXLSX)
	assert.Error(t, err)
}

func TestReadTable_StripsBOM(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader("\ufeffphone_normalized\n6281234567890\n"), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "6281234567890", tbl.columns().get(tbl.Rows[0], "phone_normalized"))
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	st := store.NewSQLStore(testutil.SetupTestDB(t))
	fx := testutil.SeedQuestionnaire(t, st)
	im := NewImporter(st, phone.DefaultPolicy())

	respondents := Table{
		Header: []string{"full_name", "phone_normalized", "current_phase"},
		Rows: [][]string{
			{"Budi", "0812-3456-7890", "P2"},
			{"", "+62 812 0000 1111", ""},
			{"Bad", "123", ""},
		},
	}
	rep, err := im.Import(ctx, KindRespondents, respondents)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Imported)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, []RowError{{Row: 4, Reason: "invalid phone number"}}, rep.Errors)

	budi, err := st.FindRespondentByPhone(ctx, "6281234567890")
	require.NoError(t, err)
	assert.Equal(t, "P2", budi.CurrentPhase)
	anon, err := st.FindRespondentByPhone(ctx, "6281200001111")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", anon.FullName)

	responses := Table{
		Header: []string{"phone_normalized", "question_code", "answer", "answered_at"},
		Rows: [][]string{
			{"6281234567890", "affiliation", `"Academia"`, "2025-01-02T03:04:05Z"},
			{"6281234567890", "university", "Universitas Indonesia", ""},
			{"6281234567890", "priorities", `["Funding","Talent"]`, ""},
			{"6281234567890", "satisfaction", "9", ""},
			{"6281234567890", "nope", `"x"`, ""},
			{"6289999999999", "affiliation", `"Industry"`, ""},
			{"6281234567890", "comments", "", ""},
		},
	}
	rep, err = im.Import(ctx, KindResponses, responses)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Imported)
	assert.Equal(t, 4, rep.Skipped)

	answers, err := st.GetAnswers(ctx, budi.ID)
	require.NoError(t, err)
	byCode := map[string]models.Answer{}
	for _, a := range answers {
		byCode[a.QuestionCode] = a
	}
	assert.Equal(t, models.TextValue("Universitas Indonesia"), byCode["university"].Value)
	assert.Equal(t, models.ListValue("Funding", "Talent"), byCode["priorities"].Value)
	assert.True(t, byCode["affiliation"].Finalized)

	progress, err := st.GetProgress(ctx, budi.ID)
	require.NoError(t, err)
	status := map[string]string{}
	for _, p := range progress {
		status[p.PhaseID] = p.Status
	}
	assert.Equal(t, models.ProgressCompleted, status[fx.Phases["P1"].ID])
	assert.Equal(t, models.ProgressCompleted, status[fx.Phases["P2"].ID])
}

func TestImport_MissingColumns(t *testing.T) {
	st := store.NewSQLStore(testutil.SetupTestDB(t))
	im := NewImporter(st, phone.DefaultPolicy())

	_, err := im.Import(context.Background(), KindRespondents, Table{Header: []string{"full_name"}, Rows: [][]string{{"x"}}})
	assert.ErrorContains(t, err, "phone_normalized")

	_, err = im.Import(context.Background(), KindResponses, Table{Header: []string{"phone"}, Rows: [][]string{{"x"}}})
	assert.ErrorContains(t, err, "question_code")

	_, err = im.Import(context.Background(), KindResponses, Table{Header: []string{"phone"}})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := store.NewSQLStore(testutil.SetupTestDB(t))
	testutil.SeedQuestionnaire(t, src)
	srcImporter := NewImporter(src, phone.DefaultPolicy())

	_, err := srcImporter.Import(ctx, KindRespondents, Table{
		Header: []string{"full_name", "phone_normalized"},
		Rows:   [][]string{{"Sari", "6281234500000"}},
	})
	require.NoError(t, err)
	_, err = srcImporter.Import(ctx, KindResponses, Table{
		Header: []string{"phone_normalized", "question_code", "answer"},
		Rows: [][]string{
			{"6281234500000", "priorities", `["Talent"]`},
			{"6281234500000", "satisfaction", "6"},
		},
	})
	require.NoError(t, err)

	people, err := src.ListRespondentsForExport(ctx)
	require.NoError(t, err)
	records, err := src.ListResponses(ctx, "")
	require.NoError(t, err)

	var peopleBuf, recordsBuf bytes.Buffer
	require.NoError(t, RespondentsTable(people).Write(&peopleBuf, FormatXLSX))
	require.NoError(t, ResponsesTable(records).Write(&recordsBuf, FormatCSV))

	dst := store.NewSQLStore(testutil.SetupTestDB(t))
	testutil.SeedQuestionnaire(t, dst)
	dstImporter := NewImporter(dst, phone.DefaultPolicy())

	peopleTable, err := ReadTable(&peopleBuf, FormatXLSX)
	require.NoError(t, err)
	_, err = dstImporter.Import(ctx, KindRespondents, peopleTable)
	require.NoError(t, err)

	recordsTable, err := ReadTable(&recordsBuf, FormatCSV)
	require.NoError(t, err)
	rep, err := dstImporter.Import(ctx, KindResponses, recordsTable)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Imported)

	got, err := dst.ListResponses(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Sari", got[0].FullName)
	assert.Equal(t, models.ListValue("Talent"), got[0].Value)
	assert.Equal(t, models.NumberValue(6), got[1].Value)
}
