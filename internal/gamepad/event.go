package gamepad

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/tinytelemetry/hunters-journal/internal/navigator"
)

// Linux joystick API (linux/joystick.h) event layout.
const (
	eventSize = 8

	typeButton = 0x01
	typeAxis   = 0x02
	typeInit   = 0x80

	axisMax = 32767

	// joydev reports the D-pad of most pads as a hat on these axes.
	axisHatX = 6
	axisHatY = 7
)

type jsEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

func decodeEvent(buf []byte) jsEvent {
	return jsEvent{
		Time:   binary.LittleEndian.Uint32(buf[0:4]),
		Value:  int16(binary.LittleEndian.Uint16(buf[4:6])),
		Type:   buf[6],
		Number: buf[7],
	}
}

// apply folds one event into snap. Axis 0 and 1 are the left stick and the
// hat axes set the D-pad buttons; other axes and out-of-range buttons are
// ignored.
func apply(snap *navigator.Snapshot, ev jsEvent) {
	switch ev.Type &^ typeInit {
	case typeButton:
		if int(ev.Number) < len(snap.Buttons) {
			snap.Buttons[ev.Number] = ev.Value != 0
		}
	case typeAxis:
		v := float64(ev.Value) / axisMax
		if v < -1 {
			v = -1
		}
		switch ev.Number {
		case 0:
			snap.LX = v
		case 1:
			snap.LY = v
		case axisHatX:
			setHat(snap, ev.Value, navigator.ButtonLeft, navigator.ButtonRight)
		case axisHatY:
			setHat(snap, ev.Value, navigator.ButtonUp, navigator.ButtonDown)
		}
	}
}

func setHat(snap *navigator.Snapshot, value int16, neg, pos int) {
	snap.Buttons[neg] = value < 0
	snap.Buttons[pos] = value > 0
}

// readEvents decodes events from r until it fails, handing each to fn.
// A clean end of stream returns nil.
func readEvents(r io.Reader, fn func(jsEvent)) error {
	buf := make([]byte, eventSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fn(decodeEvent(buf))
	}
}
