package backend

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/holla2040/beagleg/internal/config"
	"github.com/holla2040/beagleg/internal/logging"
	"github.com/holla2040/beagleg/internal/segment"
)

// Wire command bytes framing one MotorOperations call over the serial
// link to the MCU, grounded on the teacher's serialhdl.go (vendor/project)
// which frames firmware commands over github.com/tarm/serial, simplified
// here to the three calls this contract needs.
const (
	cmdEnqueue      byte = 0x01
	cmdDrain        byte = 0x02
	cmdMotorEnable  byte = 0x03
	ackByte         byte = 0xAA
)

// SerialBackend implements MotorOperations by framing segments onto a
// serial connection to the motor-control MCU.
type SerialBackend struct {
	port *serial.Port
	log  *logging.Loggers
}

// OpenSerial opens devicePath at baud and returns a ready SerialBackend.
func OpenSerial(devicePath string, baud int, log *logging.Loggers) (*SerialBackend, error) {
	cfg := &serial.Config{Name: devicePath, Baud: baud, ReadTimeout: 2 * time.Second}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return &SerialBackend{port: port, log: log}, nil
}

// frame is: cmd byte | v0 float32 | v1 float32 | NumMotors x int32 steps |
// aux uint16, little-endian.
func (b *SerialBackend) Enqueue(seg segment.Motor, msgStream io.Writer) {
	buf := make([]byte, 1+4+4+config.NumMotors*4+2)
	buf[0] = cmdEnqueue
	binary.LittleEndian.PutUint32(buf[1:], float32bits(seg.V0))
	binary.LittleEndian.PutUint32(buf[5:], float32bits(seg.V1))
	off := 9
	for _, s := range seg.Steps {
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(s)))
		off += 4
	}
	binary.LittleEndian.PutUint16(buf[off:], seg.AuxBits)

	if _, err := b.port.Write(buf); err != nil && b.log != nil {
		b.log.Error.Printf("serial enqueue write failed: %v", err)
	}
}

func (b *SerialBackend) WaitQueueEmpty() {
	if _, err := b.port.Write([]byte{cmdDrain}); err != nil {
		if b.log != nil {
			b.log.Error.Printf("serial drain write failed: %v", err)
		}
		return
	}
	ack := make([]byte, 1)
	for {
		n, err := b.port.Read(ack)
		if err != nil {
			if b.log != nil {
				b.log.Error.Printf("serial drain read failed: %v", err)
			}
			return
		}
		if n > 0 && ack[0] == ackByte {
			return
		}
	}
}

func (b *SerialBackend) MotorEnable(enable bool) {
	v := byte(0)
	if enable {
		v = 1
	}
	if _, err := b.port.Write([]byte{cmdMotorEnable, v}); err != nil && b.log != nil {
		b.log.Error.Printf("serial motor_enable write failed: %v", err)
	}
}

func (b *SerialBackend) Close() error {
	return b.port.Close()
}

func float32bits(f float64) uint32 {
	return math32bits(float32(f))
}
