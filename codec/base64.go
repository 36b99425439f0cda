// Package codec implements the small, stateless wire-format helpers the
// caster needs: Base64 credential encoding, NMEA GGA checksum/position
// extraction, the custom Position header grammar, and great-circle
// distance. None of it touches a socket.
package codec

import "github.com/pkg/errors"

const base64Table = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// ErrInvalidBase64 is returned by Base64Decode for malformed input.
var ErrInvalidBase64 = errors.New("invalid base64 input")

var base64Index [256]int8

func init() {
	for i := range base64Index {
		base64Index[i] = -1
	}
	for i := 0; i < len(base64Table); i++ {
		base64Index[base64Table[i]] = int8(i)
	}
}

// Base64Encode encodes raw using the standard alphabet, right-padded with
// '=' so the output length is a multiple of 4.
func Base64Encode(raw []byte) string {
	out := make([]byte, 0, ((len(raw)+2)/3)*4)
	for i := 0; i < len(raw); i += 3 {
		out = append(out, base64Table[(raw[i]&0xFC)>>2])
		if i+1 >= len(raw) {
			out = append(out, base64Table[(raw[i]&0x03)<<4])
			out = append(out, '=', '=')
			break
		}
		out = append(out, base64Table[(raw[i]&0x03)<<4|(raw[i+1]&0xF0)>>4])
		if i+2 >= len(raw) {
			out = append(out, base64Table[(raw[i+1]&0x0F)<<2])
			out = append(out, '=')
			break
		}
		out = append(out, base64Table[(raw[i+1]&0x0F)<<2|(raw[i+2]&0xC0)>>6])
		out = append(out, base64Table[raw[i+2]&0x3F])
	}
	return string(out)
}

// Base64Decode decodes s. Length must be a non-zero multiple of 4; '=' is
// only accepted in the last one or two positions. Any other invalid
// character or length returns ErrInvalidBase64.
func Base64Decode(s string) ([]byte, error) {
	if len(s) == 0 || len(s)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidBase64, "length %d is not a non-zero multiple of 4", len(s))
	}

	out := make([]byte, 0, len(s)/4*3)
	for i := 0; i < len(s); i += 4 {
		b0, err := decodeByte(s[i])
		if err != nil {
			return nil, err
		}
		b1, err := decodeByte(s[i+1])
		if err != nil {
			return nil, err
		}

		out = append(out, byte(b0<<2)|byte(b1>>4))

		if s[i+2] == '=' {
			if s[i+3] != '=' || i+4 != len(s) {
				return nil, errors.Wrap(ErrInvalidBase64, "'=' padding only allowed in the last two positions")
			}
			break
		}
		b2, err := decodeByte(s[i+2])
		if err != nil {
			return nil, err
		}
		out = append(out, byte(b1<<4)|byte(b2>>2))

		if s[i+3] == '=' {
			if i+4 != len(s) {
				return nil, errors.Wrap(ErrInvalidBase64, "'=' padding only allowed in the last position")
			}
			break
		}
		b3, err := decodeByte(s[i+3])
		if err != nil {
			return nil, err
		}
		out = append(out, byte(b2<<6)|byte(b3))
	}
	return out, nil
}

func decodeByte(c byte) (int8, error) {
	idx := base64Index[c]
	if idx < 0 {
		return 0, errors.Wrapf(ErrInvalidBase64, "byte %q is not in the base64 alphabet", c)
	}
	return idx, nil
}
