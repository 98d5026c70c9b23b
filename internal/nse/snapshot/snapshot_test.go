package snapshot_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nsvirk/moneybotscharts/internal/nse/snapshot"
	"github.com/nsvirk/moneybotscharts/internal/nse/transport"
	"github.com/nsvirk/moneybotscharts/internal/nse/transport/transportmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	niftyRow   = `"NIFTY 50","24,378.15","24,604.25","24,378.10","24,472.10","24,435.50","-","-36.60","-0.15","28,45,56,771","31,927.96","26,277.35","18,926.65","-5.11","26.92"`
	relRow     = `"RELIANCE","1,290.00","1,310.50","1,285.10","1,292.45","1,305.25","-","12.80","0.99","1,02,34,567","1,334.27","1,608.95","1,201.50","-3.20","14.11"`
	allIdxRow  = `"NIFTY 50","24,435.50","-0.15","24,378.15","24,604.25","24,378.10","-","24,472.10","24,781.10","24,971.30","25,790.95","19,281.75","26,277.35","18,926.65","26.92","-5.11"`
	shortBody  = "\"line\"\n\"line\"\n\"line\"\n"
	homeURL    = "https://home.test"
	segmentURL = "https://nse.test/api/equity-stockIndices"
	allURL     = "https://nse.test/api/allIndices?csv=true"
)

func preamble(n, dateIdx int, dateLine string) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = `"header line"`
	}
	lines[dateIdx] = dateLine
	return lines
}

func segmentBody(rows ...string) string {
	lines := append(preamble(16, 15, `"02-Dec-2024 15:30" `), rows...)
	return strings.Join(lines, "\r\n") + "\r\n"
}

func allIndicesBody(rows ...string) string {
	lines := append(preamble(17, 12, `"02-Dec-2024 15:30","extra","cells"`), rows...)
	return strings.Join(lines, "\n")
}

func newAssembler(tr transport.Transport, options ...snapshot.Option) *snapshot.Assembler {
	options = append([]snapshot.Option{
		snapshot.WithHomeURL(homeURL),
		snapshot.WithSegmentURL(segmentURL),
		snapshot.WithAllIndicesURL(allURL),
	}, options...)
	return snapshot.NewAssembler(tr, options...)
}

func TestFetchSegmentSnapshot(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)
	a := newAssembler(tr)
	gomock.InOrder(
		tr.EXPECT().Get(gomock.Any(), homeURL).Return([]byte("<html/>"), nil),
		tr.EXPECT().Get(gomock.Any(), a.SegmentURL("NIFTY 50")).Return([]byte(segmentBody(niftyRow, relRow)), nil),
	)

	// Act
	table, err := a.FetchSegmentSnapshot(context.Background(), "NIFTY 50")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "segment", table.View)
	assert.Equal(t, "NIFTY 50", table.Group)
	assert.Equal(t, "02-Dec-2024 15:30", table.AsOf)
	require.Len(t, table.Columns, 16)
	assert.Equal(t, snapshot.AsOfColumn, table.Columns[15])
	require.Equal(t, 2, table.Len())

	ltp, ok := table.Value(0, "LTP")
	require.True(t, ok)
	assert.Equal(t, "24435.50", ltp)

	vol, ok, err := table.Decimal(0, "Volume")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(284556771).Equal(vol))

	_, ok, err = table.Decimal(0, "IndicativeClose")
	require.NoError(t, err)
	assert.False(t, ok, "dash placeholder is not a number")

	records := table.Records()
	assert.Equal(t, "RELIANCE", records[1]["Symbol"])
	assert.Equal(t, "02-Dec-2024 15:30", records[1][snapshot.AsOfColumn])
}

func TestSegmentURL_EncodesGroup(t *testing.T) {
	t.Parallel()

	a := snapshot.NewAssembler(nil)
	assert.Equal(t,
		"https://www.nseindia.com/api/equity-stockIndices?csv=true&index=NIFTY+50&selectValFormat=crores",
		a.SegmentURL("NIFTY 50"))
}

func TestFetchAllIndicesSnapshot(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)
	tr.EXPECT().Get(gomock.Any(), homeURL).Return(nil, nil)
	tr.EXPECT().Get(gomock.Any(), allURL).Return([]byte(allIndicesBody(allIdxRow)), nil)

	table, err := newAssembler(tr).FetchAllIndicesSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "02-Dec-2024 15:30", table.AsOf)
	require.Len(t, table.Columns, 17)
	require.Equal(t, 1, table.Len())

	current, _ := table.Value(0, "Current")
	assert.Equal(t, "24435.50", current)
	chg, _ := table.Value(0, "30D%Chng")
	assert.Equal(t, "-5.11", chg)
}

func TestFetch_ShortBodyIsEmptyNotError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)
	tr.EXPECT().Get(gomock.Any(), gomock.Any()).Return([]byte(shortBody), nil).Times(4)
	a := newAssembler(tr)

	table, err := a.FetchSegmentSnapshot(context.Background(), "NIFTY IT")
	require.NoError(t, err)
	assert.Zero(t, table.Len())
	assert.Empty(t, table.AsOf)

	table, err = a.FetchAllIndicesSnapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, table.Len())
}

func TestFetch_TransportFailureIsEmptyWithEndpoint(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)
	tr.EXPECT().Get(gomock.Any(), homeURL).Return(nil, nil)
	tr.EXPECT().Get(gomock.Any(), allURL).
		Return(nil, &transport.TransportError{Method: "GET", URL: allURL, StatusCode: 401})

	table, err := newAssembler(tr).FetchAllIndicesSnapshot(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), allURL)
	var te *transport.TransportError
	assert.True(t, errors.As(err, &te))
	assert.Zero(t, table.Len())
	assert.NotNil(t, table.Rows)
}

func TestFetch_PrimingFailureSkipsDataRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)
	tr.EXPECT().Get(gomock.Any(), homeURL).Return(nil, errors.New("dial tcp: timeout"))

	table, err := newAssembler(tr).FetchSegmentSnapshot(context.Background(), "NIFTY 50")

	require.Error(t, err)
	assert.Zero(t, table.Len())
}

func TestFetchSegmentSnapshot_StrictRejectsMisfitRows(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	tr := transportmock.NewMockTransport(ctrl)
	body := segmentBody(niftyRow, `"BROKEN","1,000"`)
	tr.EXPECT().Get(gomock.Any(), homeURL).Return(nil, nil).Times(2)
	tr.EXPECT().Get(gomock.Any(), gomock.Not(homeURL)).Return([]byte(body), nil).Times(2)

	table, err := newAssembler(tr, snapshot.WithStrict()).FetchSegmentSnapshot(context.Background(), "NIFTY 50")
	assert.ErrorIs(t, err, snapshot.ErrMalformedResponse)
	assert.Zero(t, table.Len())
	assert.Equal(t, "NIFTY 50", table.Group)

	table, err = newAssembler(tr).FetchSegmentSnapshot(context.Background(), "NIFTY 50")
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestParse_MisfitRows(t *testing.T) {
	t.Parallel()

	body := segmentBody(niftyRow, `"BROKEN","1,000"`, "", relRow)

	table, err := snapshot.Parse(snapshot.SegmentView, body, false)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len(), "misfit and blank rows are skipped")

	_, err = snapshot.Parse(snapshot.SegmentView, body, true)
	assert.ErrorIs(t, err, snapshot.ErrMalformedResponse)
}

func TestParse_PreambleOnly(t *testing.T) {
	t.Parallel()

	table, err := snapshot.Parse(snapshot.SegmentView, segmentBody(), false)
	require.NoError(t, err)
	assert.Equal(t, "02-Dec-2024 15:30", table.AsOf)
	assert.Zero(t, table.Len())
}
