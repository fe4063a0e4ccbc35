package report_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ablizer/ablizer/internal/outcome"
	"github.com/ablizer/ablizer/internal/report"
	"github.com/ablizer/ablizer/internal/stats"
)

var heroMeta = report.Meta{Name: "hero", Description: "Homepage headline", Metric: "CTR"}

func mustCompute(t *testing.T, impA, convA, impB, convB int) *stats.Result {
	t.Helper()
	r, err := stats.Compute(stats.Sample{Impressions: impA, Conversions: convA}, stats.Sample{Impressions: impB, Conversions: convB})
	require.NoError(t, err)
	return r
}

func TestRelativeUpliftPercent(t *testing.T) {
	assert.Equal(t, 60.0, report.RelativeUpliftPercent(0.05, 0.08))
	assert.Equal(t, 0.0, report.RelativeUpliftPercent(0.0, 0.02))
	assert.Equal(t, -37.5, report.RelativeUpliftPercent(0.08, 0.05))
	assert.Equal(t, 0.0, report.RelativeUpliftPercent(0.1, 0.1))
	assert.Equal(t, 33.33, report.RelativeUpliftPercent(0.03, 0.04))
	// 15.625 exactly; the tie goes to the even digit.
	assert.Equal(t, 15.62, report.RelativeUpliftPercent(32.0/39, 37.0/39))
}

func TestCompose_ZTest(t *testing.T) {
	r := mustCompute(t, 1000, 50, 1000, 80)
	rep := report.Compose(heroMeta, r)

	assert.Equal(t, "hero", rep.TestName)
	assert.Equal(t, "CTR", rep.Metric)
	assert.Equal(t, stats.MethodZTest, rep.Method)
	assert.Equal(t, 1000, rep.SampleSizeA)
	assert.Equal(t, 1000, rep.SampleSizeB)
	assert.Equal(t, 50, rep.ConversionsA)
	assert.Equal(t, 80, rep.ConversionsB)
	assert.Equal(t, r.PValue, rep.PValue)
	assert.Equal(t, 60.0, rep.IncreasePercent)
	assert.Equal(t, outcome.Winning, rep.Outcome)
	assert.Equal(t, "Test was significant.", rep.Summary)

	require.NotNil(t, rep.CI95)
	assert.Equal(t, r.CI95.Low, rep.CI95[0])
	assert.Equal(t, r.CI95.High, rep.CI95[1])
	require.NotNil(t, rep.StandardDeviation)
	assert.Equal(t, *r.ZStatistic, *rep.StandardDeviation)

	// The report must not alias the result.
	*rep.StandardDeviation = 0
	assert.NotEqual(t, 0.0, *r.ZStatistic)
}

func TestCompose_Fisher(t *testing.T) {
	rep := report.Compose(heroMeta, mustCompute(t, 100, 3, 100, 10))

	assert.Equal(t, stats.MethodFisherExact, rep.Method)
	assert.Nil(t, rep.CI95)
	assert.Nil(t, rep.StandardDeviation)
	assert.Equal(t, outcome.Other, rep.Outcome)
	assert.Equal(t, "Test was not significant.", rep.Summary)
}

func TestReport_JSONFieldNames(t *testing.T) {
	buf, err := json.Marshal(report.Compose(heroMeta, mustCompute(t, 1000, 50, 1000, 80)))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(buf, &fields))

	for _, name := range []string{
		"method", "conv_rate_a", "conv_rate_b", "difference", "p_value", "significant",
		"sample_size_a", "sample_size_b", "conversions_a", "conversions_b", "ci_95", "standard_deviation",
	} {
		assert.Contains(t, fields, name)
	}
	assert.Equal(t, "two_proportion_z_test", fields["method"])

	buf, err = json.Marshal(report.Compose(heroMeta, mustCompute(t, 100, 3, 100, 10)))
	require.NoError(t, err)
	fields = nil
	require.NoError(t, json.Unmarshal(buf, &fields))

	assert.Equal(t, "fisher_exact", fields["method"])
	assert.NotContains(t, fields, "ci_95")
	assert.NotContains(t, fields, "standard_deviation")
}

func sampleReports(t *testing.T) []report.Report {
	return []report.Report{
		report.Compose(heroMeta, mustCompute(t, 1000, 50, 1000, 80)),
		report.Compose(report.Meta{Name: "cta"}, mustCompute(t, 100, 3, 100, 10)),
		report.Compose(report.Meta{Name: "pricing"}, mustCompute(t, 5000, 400, 5000, 300)),
	}
}

func TestWriteJSON_ValidAgainstSchema(t *testing.T) {
	sch, err := jsonschema.UnmarshalJSON(strings.NewReader(report.Schema))
	require.NoError(t, err, "failed to parse schema JSON")

	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource("schema.json", sch))
	compiled, err := compiler.Compile("schema.json")
	require.NoError(t, err)

	for _, reports := range [][]report.Report{sampleReports(t), nil} {
		var buf bytes.Buffer
		require.NoError(t, report.WriteJSON(&buf, reports))

		inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.NoError(t, compiled.Validate(inst), "JSON output does not conform to schema:\n%s", buf.String())
	}
}

func TestNewDocument_TalliesOutcomes(t *testing.T) {
	doc := report.NewDocument(sampleReports(t))

	assert.Equal(t, report.Version, doc.Version)
	assert.Equal(t, 1, doc.Outcomes.Winning)
	assert.Equal(t, 1, doc.Outcomes.Losing)
	assert.Equal(t, 1, doc.Outcomes.Other)

	empty := report.NewDocument(nil)
	assert.NotNil(t, empty.Reports)
	assert.Equal(t, outcome.Ratios{}, empty.Outcomes)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf, report.Compose(heroMeta, mustCompute(t, 1000, 50, 1000, 80))))

	out := buf.String()
	for _, want := range []string{"TEST: hero", "METRIC: CTR", "two_proportion_z_test", "5.00%", "8.00%", "WINNING", "+60.00%", "Test was significant."} {
		assert.Contains(t, out, want)
	}
}

func TestWriteText_FisherHasNoInterval(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf, report.Compose(heroMeta, mustCompute(t, 100, 3, 100, 10))))

	out := buf.String()
	assert.Contains(t, out, "n/a for fisher_exact")
	assert.NotContains(t, out, "z:")
}

func TestBrief(t *testing.T) {
	rep := report.Compose(heroMeta, mustCompute(t, 1000, 50, 1000, 80))
	brief := report.Brief(heroMeta, rep)

	for _, want := range []string{
		"Test Name: hero",
		"Test Description: Homepage headline",
		"Metric: CTR",
		"Impressions: 1000",
		"Conversion Rate: 5.00%",
		"Conversion Rate: 8.00%",
		"Relative Change: 60.00%",
	} {
		assert.Contains(t, brief, want)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", report.FormatNumber(999))
	assert.Equal(t, "1,000", report.FormatNumber(1000))
	assert.Equal(t, "12,345,678", report.FormatNumber(12345678))
	assert.Equal(t, "0", report.FormatNumber(0))
	assert.Equal(t, "1,000,000,000", report.FormatNumber(1000000000))
	assert.Equal(t, "-1,234,567", report.FormatNumber(-1234567))
	assert.Equal(t, "-999", report.FormatNumber(-999))
	assert.Equal(t, "-2,147,483,648", report.FormatNumber(math.MinInt32))
	if strconv.IntSize == 64 {
		assert.Equal(t, "-9,223,372,036,854,775,808", report.FormatNumber(math.MinInt))
		assert.Equal(t, "9,223,372,036,854,775,807", report.FormatNumber(math.MaxInt))
	}
}
