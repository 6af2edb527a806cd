package main

import (
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// JoinURL builds the link players open to join a room
func JoinURL(baseURL, code string) string {
	base := strings.TrimRight(baseURL, "/")
	return base + "/?room=" + url.QueryEscape(code)
}

// RoomQRCode renders the join link of a room as a PNG
func RoomQRCode(baseURL, code string) ([]byte, error) {
	return qrcode.Encode(JoinURL(baseURL, code), qrcode.Medium, qrSize)
}
