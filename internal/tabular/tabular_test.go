package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

const sampleCSV = `Referring page title,Referring page URL,Domain rating,Domain traffic,Referring domains,Page traffic,Keywords,Anchor,Nofollow
Cheap pills here,https://www.spam.example.test/page1,5,0,3,0,12,buy pills,true
Pills again,https://spam.example.test/page2,5,0,3,0,12,buy pills,true
Review blog,https://good.example.test/review,45,12000,150,300,80,best routers,false
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "links.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	tbl, err := Load(writeSample(t))
	require.NoError(t, err)

	assert.Len(t, tbl.Headers, 9)
	assert.Len(t, tbl.Rows, 3)
	assert.Equal(t, "5", tbl.Rows[0]["Domain rating"])
	assert.Equal(t, "https://good.example.test/review", tbl.Rows[2]["Referring page URL"])
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rec := range [][]string{
		{"Referring page URL", "Domain rating"},
		{"https://spam.example.test/p", "5"},
	} {
		row := sheet.AddRow()
		for _, v := range rec {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(path))

	tbl, err := Load(path)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "5", tbl.Rows[0]["Domain rating"])
}

func TestDetectColumns(t *testing.T) {
	cols := DetectColumns([]string{
		"Referring page title", "Referring page URL", "DR", "Domain traffic",
		"Ref. domains", "Page traffic", "Keywords", "Anchor", "Nofollow",
	})
	assert.Equal(t, "Referring page title", cols.Title)
	assert.Equal(t, "Referring page URL", cols.URL)
	assert.Equal(t, "DR", cols.Rating)
	assert.Equal(t, "Domain traffic", cols.Traffic)
	assert.Equal(t, "Ref. domains", cols.ReferringDomains)
	assert.Equal(t, "Page traffic", cols.PageTraffic)
	assert.Equal(t, "Keywords", cols.Keywords)
	assert.Equal(t, "Anchor", cols.Anchor)
	assert.Equal(t, "Nofollow", cols.Nofollow)
}

func TestDetectColumnsAliases(t *testing.T) {
	cols := DetectColumns([]string{"URL", "Domain Rating (DR)", "Title"})
	assert.Equal(t, "URL", cols.URL)
	assert.Equal(t, "Domain Rating (DR)", cols.Rating)
	assert.Equal(t, "Title", cols.Title)

	// bare "drive" must not match the rating role
	cols = DetectColumns([]string{"drive"})
	assert.Empty(t, cols.Rating)
}

func TestParseMetric(t *testing.T) {
	assert.Nil(t, ParseMetric(""))
	assert.Nil(t, ParseMetric("n/a"))
	assert.Nil(t, ParseMetric("-"))
	assert.Nil(t, ParseMetric("none"))

	require.NotNil(t, ParseMetric("42"))
	assert.Equal(t, 42.0, *ParseMetric("42"))
	assert.Equal(t, 25.0, *ParseMetric("DR: 25"))
	assert.Equal(t, 3.5, *ParseMetric("3.5"))
	assert.Equal(t, 0.0, *ParseMetric("0"))
}

func TestGroupDomains(t *testing.T) {
	tbl, err := Load(writeSample(t))
	require.NoError(t, err)
	cols := DetectColumns(tbl.Headers)

	order, groups := GroupDomains(tbl.Rows, cols)

	require.Equal(t, []string{"spam.example.test", "good.example.test"}, order)
	assert.Len(t, groups["spam.example.test"], 2, "www and bare host collapse to one domain")
	assert.Len(t, groups["good.example.test"], 1)
}

func TestBuildRecord(t *testing.T) {
	tbl, err := Load(writeSample(t))
	require.NoError(t, err)
	cols := DetectColumns(tbl.Headers)
	_, groups := GroupDomains(tbl.Rows, cols)

	rec := BuildRecord("spam.example.test", groups["spam.example.test"], cols, LimitsFor(2))

	require.NotNil(t, rec.Rating)
	assert.Equal(t, 5.0, *rec.Rating)
	require.NotNil(t, rec.Traffic)
	assert.Equal(t, 0.0, *rec.Traffic)
	assert.True(t, rec.HasNofollow)
	assert.Equal(t, 2, rec.LinkCount)
	require.NotNil(t, rec.AvgPageTraffic)
	assert.Equal(t, 0.0, *rec.AvgPageTraffic)
	assert.NotEmpty(t, rec.Titles)
	assert.Equal(t, []string{"buy pills"}, rec.Anchors)
}

func TestBuildRecordMissingMetrics(t *testing.T) {
	rows := []Row{{"Referring page URL": "https://unknown.example.test/x"}}
	cols := DetectColumns([]string{"Referring page URL"})

	rec := BuildRecord("unknown.example.test", rows, cols, LimitsFor(1))

	assert.Nil(t, rec.Rating)
	assert.Nil(t, rec.Traffic)
	assert.Nil(t, rec.AvgPageTraffic)
	assert.Equal(t, "https://unknown.example.test/x", rec.URL)
}

func TestChunkSizeTiers(t *testing.T) {
	assert.Equal(t, 50, ChunkSize(10))
	assert.Equal(t, 50, ChunkSize(500))
	assert.Equal(t, 100, ChunkSize(501))
	assert.Equal(t, 100, ChunkSize(2000))
	assert.Equal(t, 150, ChunkSize(2001))
}

func TestSplit(t *testing.T) {
	rows := make([]Row, 120)
	chunks := Split(rows, 50)

	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Len(t, chunks[0].Rows, 50)
	assert.Len(t, chunks[2].Rows, 20)
}

func TestWriteChunkRoundTrip(t *testing.T) {
	headers := []string{"URL", "DR"}
	rows := []Row{{"URL": "https://a.test", "DR": "10"}}

	path, err := WriteChunk(headers, rows)
	require.NoError(t, err)
	defer os.Remove(path)

	tbl, err := Load(path)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "10", tbl.Rows[0]["DR"])
}

func TestBuildPreview(t *testing.T) {
	tbl, err := Load(writeSample(t))
	require.NoError(t, err)
	cols := DetectColumns(tbl.Headers)

	preview := BuildPreview(tbl, cols, false)

	assert.Contains(t, preview, "Total links: 3")
	assert.Contains(t, preview, "Domain rating")
	assert.Contains(t, preview, "Average DR: 18.3")
	assert.Contains(t, preview, "Links with zero traffic: 2")
	assert.Contains(t, preview, "buy pills")
	assert.Contains(t, preview, "Link #1:")
}

func TestBuildPreviewChunkPartFewerExamples(t *testing.T) {
	rows := make([]Row, 0, 20)
	for i := 0; i < 20; i++ {
		rows = append(rows, Row{"URL": "https://a.test/p", "Anchor": "x"})
	}
	tbl := &Table{Headers: []string{"URL", "Anchor"}, Rows: rows}
	cols := DetectColumns(tbl.Headers)

	assert.Contains(t, BuildPreview(tbl, cols, true), "first 3 of 20")
	assert.Contains(t, BuildPreview(tbl, cols, false), "first 10 of 20")
}

func TestAnchorStats(t *testing.T) {
	rows := []Row{
		{"Anchor": "casino"}, {"Anchor": "casino"}, {"Anchor": "review"},
	}
	cols := Columns{Anchor: "Anchor"}

	stats := AnchorStats(rows, cols, 10)

	require.Len(t, stats, 2)
	assert.Equal(t, "casino", stats[0].Anchor)
	assert.Equal(t, 2, stats[0].Count)
}
