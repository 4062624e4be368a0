package services

import (
	"errors"
	"fmt"
	"net/http"
)

// 每個階段只把自己協作者的錯誤對應成以下其中一種
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrWorkDir        = errors.New("work dir failure")
	ErrDownload       = errors.New("download failure")
	ErrDecode         = errors.New("decode failure")
	ErrAuth           = errors.New("auth failure")
	ErrUpload         = errors.New("upload failure")
)

// Stage 流程階段名稱，也會寫入執行紀錄
type Stage string

const (
	StageRequest  Stage = "request"
	StageWorkDir  Stage = "workdir"
	StageDownload Stage = "download"
	StageDecode   Stage = "decode"
	StageAuth     Stage = "auth"
	StageUpload   Stage = "upload"
)

var stageKinds = map[Stage]error{
	StageRequest:  ErrInvalidRequest,
	StageWorkDir:  ErrWorkDir,
	StageDownload: ErrDownload,
	StageDecode:   ErrDecode,
	StageAuth:     ErrAuth,
	StageUpload:   ErrUpload,
}

// StageError 某個階段失敗；errors.Is 同時符合階段種類與原始錯誤
type StageError struct {
	Stage Stage
	Err   error
}

func newStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s 階段失敗: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{stageKinds[e.Stage], e.Err}
}

// PublicResponse 把錯誤轉成回給呼叫端的狀態碼與訊息，不含內部細節
func PublicResponse(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, "done"
	case errors.Is(err, ErrInvalidRequest):
		var se *StageError
		if errors.As(err, &se) {
			return http.StatusBadRequest, se.Err.Error()
		}
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrDownload):
		return http.StatusBadRequest, "Could not download mp4"
	case errors.Is(err, ErrDecode):
		return http.StatusBadRequest, "Could not decode mp4"
	case errors.Is(err, ErrAuth):
		return http.StatusBadRequest, "Could not auth drive"
	case errors.Is(err, ErrUpload):
		return http.StatusBadRequest, "Could not upload jpegs"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
