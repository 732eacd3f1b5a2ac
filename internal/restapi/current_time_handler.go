package restapi

import (
	"net/http"

	"github.com/ibi-group/sAVe/internal/models"
)

type currentTimeData struct {
	ReadableTime string `json:"readableTime"`
	Time         int64  `json:"time"`
}

func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	now := api.Clock.Now()
	data := currentTimeData{
		ReadableTime: now.Format("2006-01-02T15:04:05-0700"),
		Time:         now.UnixMilli(),
	}
	api.sendResponse(w, r, models.NewOKResponse(data, api.Clock))
}
