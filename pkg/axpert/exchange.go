package axpert

const (
	// Re-reads allowed for poll queries. The device sometimes leaves a stale
	// response in its buffer; reading again picks up the answer in flight.
	POLL_MAX_REREADS = 2
	// Set commands are never re-read nor re-sent.
	SET_MAX_REREADS = 0
)

// Exchange writes command once and reads one frame back. While the frame is
// malformed and maxRereads allows it, another frame is read WITHOUT re-sending
// the command. The last frame read is returned even if still malformed.
func Exchange(s *Session, command []byte, maxRereads int) (Frame, error) {
	if err := s.Write(command); err != nil {
		return Frame{}, err
	}
	frame, err := s.ReadFrame()
	for err == nil && !frame.WellFormed() && maxRereads > 0 {
		maxRereads--
		frame, err = s.ReadFrame()
	}
	return frame, err
}
