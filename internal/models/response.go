package models

import "github.com/ibi-group/sAVe/internal/clock"

// ResponseModel is the base JSON envelope for every API response.
type ResponseModel struct {
	Code        int         `json:"code"`
	CurrentTime int64       `json:"currentTime"`
	Data        interface{} `json:"data,omitempty"`
	Text        string      `json:"text"`
}

// ResponseCurrentTime returns the envelope timestamp in Unix milliseconds.
func ResponseCurrentTime(c clock.Clock) int64 {
	return c.NowUnixMilli()
}

// NewOKResponse wraps data in a success envelope.
func NewOKResponse(data interface{}, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        200,
		CurrentTime: ResponseCurrentTime(c),
		Data:        data,
		Text:        "OK",
	}
}

// DirectionsData is the payload returned by the directions endpoint:
// the planned trip plus the change-set the shaper applied to it.
type DirectionsData struct {
	Trip    *Trip   `json:"trip"`
	Changes Changes `json:"changes"`
}
