package bringup

import "time"

// Encoder command opcodes and the registers the scripts touch. The full
// vendor tables were recovered from USB captures of the official driver;
// the scripts below follow their phase structure: wake the encoder, select
// the input front end, program the frame geometry, then start the encoder
// firmware.
const (
	cmdFirmwareState byte = 0x01

	firmwareStop  uint16 = 0x0000
	firmwareStart uint16 = 0x0001

	regEncoderState uint16 = 0x0000
	regInputSelect  uint16 = 0x0093
	regHorizSize    uint16 = 0x0094
	regVertSize     uint16 = 0x0095
	regScanMode     uint16 = 0x0096
	regPowerDown    uint16 = 0x00ed

	idxEncoder uint16 = 0x0010

	inputHDMI      byte = 0x01
	inputComponent byte = 0x02

	scanProgressive byte = 0x00
	scanInterlaced  byte = 0x01
)

// inputScript builds the bring-up sequence for one input/geometry
// combination
func inputScript(name string, input byte, width, height uint16, scan byte) *script {
	return &script{
		name: name,
		steps: []step{
			// Wake the encoder and confirm it left idle.
			regRead(regEncoderState, idxEncoder, 2),
			regWrite(regEncoderState, idxEncoder, 0x00, 0x01),
			pause(20 * time.Millisecond),
			regRead(regEncoderState, idxEncoder, 2),

			// Front end and frame geometry.
			regWrite(regInputSelect, idxEncoder, 0x00, input),
			regWrite(regHorizSize, idxEncoder, byte(width>>8), byte(width)),
			regWrite(regVertSize, idxEncoder, byte(height>>8), byte(height)),
			regWrite(regScanMode, idxEncoder, 0x00, scan),

			// Start the encoder firmware and give it time to lock
			// onto the signal before the first bulk read.
			command(cmdFirmwareState, 0x00, firmwareStart),
			pause(500 * time.Millisecond),
			regRead(regEncoderState, idxEncoder, 2),
		},
	}
}

// protocols maps every standard to its bring-up sequence
var protocols = map[Standard]Protocol{
	Standard720p:           inputScript("hdmi-720p", inputHDMI, 1280, 720, scanProgressive),
	Standard1080p:          inputScript("hdmi-1080p", inputHDMI, 1920, 1080, scanProgressive),
	Standard576i:           inputScript("sd-576i", inputHDMI, 720, 576, scanInterlaced),
	StandardComponent576p:  inputScript("component-576p", inputComponent, 720, 576, scanProgressive),
	StandardComponent720p:  inputScript("component-720p", inputComponent, 1280, 720, scanProgressive),
	StandardComponent1080i: inputScript("component-1080i", inputComponent, 1920, 1080, scanInterlaced),
	StandardComponent1080p: inputScript("component-1080p", inputComponent, 1920, 1080, scanProgressive),
}

// resetScript returns the device to idle: stop the encoder firmware, then
// power the front end down. Mirrors the teardown sequence the official
// driver issues before releasing the device.
var resetScript = &script{
	name: "reset",
	steps: []step{
		command(cmdFirmwareState, 0x00, firmwareStop),
		pause(100 * time.Millisecond),
		regWrite(regInputSelect, idxEncoder, 0x00, 0x00),
		regWrite(regPowerDown, idxEncoder, 0x00, 0x00),
		regWrite(regEncoderState, idxEncoder, 0x00, 0x00),
	},
}
