package ticker

import "fmt"

// SplitPackets slices a binary frame into its constituent tick packets.
//
// Frame layout: a big-endian int16 packet count, then that many
// repetitions of a big-endian int16 length followed by exactly that many
// bytes of payload. Returned slices alias frame; callers that retain them
// past the next read should copy.
func SplitPackets(frame []byte) ([][]byte, error) {
	n, err := readUint16(frame, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: reading packet count: %v", ErrMalformedFrame, err)
	}
	if n == 0 {
		return nil, nil
	}

	packets := make([][]byte, 0, n)
	offset := 2
	for i := 0; i < int(n); i++ {
		length, err := readUint16(frame, offset)
		if err != nil {
			return nil, fmt.Errorf("%w: reading length of packet %d: %v", ErrMalformedFrame, i, err)
		}
		offset += 2
		end := offset + int(length)
		if end > len(frame) {
			return nil, fmt.Errorf("%w: packet %d of length %d overruns frame of length %d",
				ErrMalformedFrame, i, length, len(frame))
		}
		packets = append(packets, frame[offset:end])
		offset = end
	}
	return packets, nil
}
