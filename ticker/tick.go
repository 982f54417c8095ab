package ticker

// OHLC holds a packet's open/high/low/close fields.
type OHLC struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Depth is a single market-depth entry: five of these make up one side of
// the order book in a FULL-mode packet.
type Depth struct {
	Quantity int32
	Price    float64
	Orders   int16
}

// MarketDepth is the five-level buy and sell order-book snapshot carried
// by FULL-mode packets.
type MarketDepth struct {
	Buy  []Depth
	Sell []Depth
}

// Tick is a single instrument's market-data observation, decoded from one
// binary packet. Fields the packet's mode doesn't define are left at
// their zero value.
type Tick struct {
	InstrumentToken int32
	IsTradable      bool
	Mode            Mode

	LastPrice          float64
	OHLC               OHLC
	NetChange          float64
	LastTradedQuantity int32
	AverageTradePrice  float64
	VolumeTraded       int32
	TotalBuyQuantity   int32
	TotalSellQuantity  int32
	LastTradeTime      int32
	OI                 int32
	OIDayHigh          int32
	OIDayLow           int32
	Timestamp          int32

	MarketDepth MarketDepth
}

const (
	cdsDivisor     = 10_000_000.0
	defaultDivisor = 100.0
)

// DecodeTick maps a packet's length to a tick shape and populates fields
// with the correct price scaling. Packet lengths outside the known set
// produce a default tick with only the token, segment-derived tradability
// and mode left at their computed/zero values; this matches the source's
// permissive behavior of decoding what it recognizes and moving on.
func DecodeTick(packet []byte) Tick {
	var t Tick

	token, err := ReadInt(packet, 0, 4, true)
	if err != nil {
		return t
	}
	t.InstrumentToken = int32(token)

	segment := SegmentOf(t.InstrumentToken)
	divisor := defaultDivisor
	if segment == segmentCDS {
		divisor = cdsDivisor
	}
	t.IsTradable = segment != segmentIndices

	switch len(packet) {
	case 8:
		t.Mode = ModeLTP
		t.LastPrice = price(packet, 4, divisor)

	case 28, 32:
		t.Mode = ModeQuote
		if len(packet) == 32 {
			t.Mode = ModeFull
		}
		t.LastPrice = price(packet, 4, divisor)
		t.OHLC.High = price(packet, 8, divisor)
		t.OHLC.Low = price(packet, 12, divisor)
		t.OHLC.Open = price(packet, 16, divisor)
		t.OHLC.Close = price(packet, 20, divisor)
		t.NetChange = price(packet, 24, divisor)
		if len(packet) == 32 {
			// The source reads this timestamp as bytes [28..33], a
			// six-byte overrun of what's actually a 4-byte field.
			// Read the rational [28..32) here instead.
			t.Timestamp = readInt32(packet, 28)
		}

	case 44, 184:
		t.Mode = ModeQuote
		if len(packet) == 184 {
			t.Mode = ModeFull
		}
		t.LastPrice = price(packet, 4, divisor)
		t.LastTradedQuantity = readInt32(packet, 8)
		t.AverageTradePrice = price(packet, 12, divisor)
		t.VolumeTraded = readInt32(packet, 16)
		t.TotalBuyQuantity = readInt32(packet, 20)
		t.TotalSellQuantity = readInt32(packet, 24)
		t.OHLC.Open = price(packet, 28, divisor)
		t.OHLC.High = price(packet, 32, divisor)
		t.OHLC.Low = price(packet, 36, divisor)
		t.OHLC.Close = price(packet, 40, divisor)
		t.NetChange = (t.LastPrice - t.OHLC.Close) * 100 / t.OHLC.Close

		if len(packet) == 184 {
			t.LastTradeTime = readInt32(packet, 44)
			t.OI = readInt32(packet, 48)
			t.OIDayHigh = readInt32(packet, 52)
			t.OIDayLow = readInt32(packet, 56)
			t.Timestamp = readInt32(packet, 60)

			offset := 64
			for i := 0; i < 10; i++ {
				d := Depth{
					Quantity: readInt32(packet, offset),
					Price:    price(packet, offset+4, divisor),
					Orders:   readInt16(packet, offset+8),
				}
				if i < 5 {
					t.MarketDepth.Buy = append(t.MarketDepth.Buy, d)
				} else {
					t.MarketDepth.Sell = append(t.MarketDepth.Sell, d)
				}
				offset += 12
			}
		}
	}

	return t
}

func price(packet []byte, offset int, divisor float64) float64 {
	return float64(readInt32(packet, offset)) / divisor
}
