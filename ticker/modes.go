package ticker

// Mode is a subscription detail level. ModeUnset is an internal sentinel
// for instruments subscribed without an explicit mode; it is never sent
// over the wire and is promoted to ModeQuote on resubscription.
type Mode string

const (
	ModeUnset Mode = ""
	ModeLTP   Mode = "ltp"
	ModeQuote Mode = "quote"
	ModeFull  Mode = "full"
)

// segment codes, keyed by the low 8 bits of an instrument token.
const (
	segmentNSE     = 1
	segmentNFO     = 2
	segmentCDS     = 3
	segmentBSE     = 4
	segmentBFO     = 5
	segmentBSECDS  = 6
	segmentMCX     = 7
	segmentMCXSX   = 8
	segmentIndices = 9
)

// Segments maps segment name to its wire code, per the segment table.
var Segments = map[string]int{
	"nse":     segmentNSE,
	"nfo":     segmentNFO,
	"cds":     segmentCDS,
	"bse":     segmentBSE,
	"bfo":     segmentBFO,
	"bsecds":  segmentBSECDS,
	"mcx":     segmentMCX,
	"mcxsx":   segmentMCXSX,
	"indices": segmentIndices,
}

// SegmentOf returns the segment code encoded in an instrument token's low
// 8 bits.
func SegmentOf(instrumentToken int32) int {
	return int(instrumentToken & 0xff)
}
