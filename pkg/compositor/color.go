package compositor

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// namedColors はエディタのカラーパレットが送ってくる色名の対応表です。
var namedColors = map[string]color.NRGBA{
	"white":       {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	"black":       {A: 0xff},
	"red":         {R: 0xff, A: 0xff},
	"green":       {G: 0x80, A: 0xff},
	"lime":        {G: 0xff, A: 0xff},
	"blue":        {B: 0xff, A: 0xff},
	"yellow":      {R: 0xff, G: 0xff, A: 0xff},
	"orange":      {R: 0xff, G: 0xa5, A: 0xff},
	"purple":      {R: 0x80, B: 0x80, A: 0xff},
	"gray":        {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"grey":        {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"silver":      {R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff},
	"navy":        {B: 0x80, A: 0xff},
	"transparent": {},
}

// ParseCSSColor はCSSカラー文字列を NRGBA に解釈します。
// 対応形式: #rgb / #rgba / #rrggbb / #rrggbbaa / rgb(...) / rgba(...) / 色名。
func ParseCSSColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return color.NRGBA{}, fmt.Errorf("色指定が空です")
	}

	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		return parseHexColor(s)
	}
	if strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba(") {
		return parseRGBFunc(s)
	}

	return color.NRGBA{}, fmt.Errorf("解釈できない色指定です: %q", s)
}

func parseHexColor(s string) (color.NRGBA, error) {
	hex := s[1:]

	// #rgb / #rgba は各桁を複製して8bit化するのだ
	switch len(hex) {
	case 3, 4:
		var expanded strings.Builder
		for _, r := range hex {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		hex = expanded.String()
	}

	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("16進カラーの桁数が不正です: %q", s)
	}

	values := make([]uint8, 0, 4)
	for i := 0; i < len(hex); i += 2 {
		v, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("16進カラーを解釈できません: %q: %w", s, err)
		}
		values = append(values, uint8(v))
	}

	c := color.NRGBA{R: values[0], G: values[1], B: values[2], A: 0xff}
	if len(values) == 4 {
		c.A = values[3]
	}
	return c, nil
}

func parseRGBFunc(s string) (color.NRGBA, error) {
	open := strings.Index(s, "(")
	close := strings.LastIndex(s, ")")
	if open < 0 || close < open {
		return color.NRGBA{}, fmt.Errorf("rgb() の括弧が閉じていません: %q", s)
	}

	parts := strings.Split(s[open+1:close], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("rgb() の要素数が不正です: %q", s)
	}

	channels := make([]uint8, 0, 3)
	for _, part := range parts[:3] {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 || v > 255 {
			return color.NRGBA{}, fmt.Errorf("rgb() のチャネル値が不正です: %q", s)
		}
		channels = append(channels, uint8(v))
	}

	c := color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: 0xff}
	if len(parts) == 4 {
		alpha, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || alpha < 0 || alpha > 1 {
			return color.NRGBA{}, fmt.Errorf("rgba() のアルファ値が不正です: %q", s)
		}
		c.A = uint8(alpha*255 + 0.5)
	}
	return c, nil
}
