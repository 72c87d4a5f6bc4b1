package device

// Logical controller IDs. The 14 buttons follow the XInput wButtons bit order (the two unused
// bits removed), then the stick half-axes and the two triggers.
const (
	PadDPadUp uint8 = iota
	PadDPadDown
	PadDPadLeft
	PadDPadRight
	PadStart
	PadBack
	PadLeftThumb
	PadRightThumb
	PadLeftShoulder
	PadRightShoulder
	PadA
	PadB
	PadX
	PadY
	PadLSUp
	PadLSDown
	PadLSLeft
	PadLSRight
	PadRSUp
	PadRSDown
	PadRSLeft
	PadRSRight
	PadLT
	PadRT

	PadIDCount
)
