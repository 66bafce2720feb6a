// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/jeranaias/amadeus-tui/internal/auth"
	"github.com/jeranaias/amadeus-tui/internal/failover"
	"github.com/jeranaias/amadeus-tui/internal/provider"
)

var (
	// ErrBusy is returned when input arrives outside InputReady. It is never
	// queued.
	ErrBusy = errors.New("a turn is already in progress")

	// ErrEmptyInput is returned for blank submissions.
	ErrEmptyInput = errors.New("empty input")

	// ErrCredentialAcquisition wraps a failure to obtain a Vertex access token.
	ErrCredentialAcquisition = errors.New("could not acquire access token")
)

// ErrorKind classifies a failed turn for the in-character message.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindMissingCredential
	KindInvalidCredential
	KindRateLimited
	KindServerFault
	KindTimeout
	KindNetworkUnreachable
	KindUnknownProvider
	KindModelNotFound
	KindCredentialAcquisition
	KindDecodeFailure
	KindStreamInterrupted
	KindAllRegionsExhausted
)

var kindNames = map[ErrorKind]string{
	KindUnknown:               "Unknown",
	KindMissingCredential:     "MissingCredential",
	KindInvalidCredential:     "InvalidCredential",
	KindRateLimited:           "RateLimited",
	KindServerFault:           "ServerFault",
	KindTimeout:               "Timeout",
	KindNetworkUnreachable:    "NetworkUnreachable",
	KindUnknownProvider:       "UnknownProvider",
	KindModelNotFound:         "ModelNotFound",
	KindCredentialAcquisition: "CredentialAcquisition",
	KindDecodeFailure:         "DecodeFailure",
	KindStreamInterrupted:     "StreamInterrupted",
	KindAllRegionsExhausted:   "AllRegionsExhausted",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Fixed in-character messages.
const (
	msgMissingCredential     = "……APIキーが設定されてないみたいよ。CONFIGから設定してちょうだい。"
	msgInvalidCredential     = "APIキーが無効みたい……もう一度確認して設定し直してくれる？"
	msgForbidden             = "このAPIへのアクセスが拒否されたわ。権限を確認してみて。"
	msgRateLimited           = "リクエストが多すぎるみたい。少し待ってからもう一度試してくれない？"
	msgTimeout               = "応答がタイムアウトしたわ……ネットワークの状態を確認してみて。"
	msgNetworkUnreachable    = "ネットワークに接続できないわ。インターネット接続を確認してちょうだい。"
	msgUnknownProvider       = "APIプロバイダーの設定がおかしいわ。CONFIGからプロバイダーを選び直して。"
	msgServerFault           = "サーバー側でエラーが起きてるみたい。しばらくしてからもう一度試して。"
	msgModelNotFound         = "指定されたモデルが見つからないみたい。CONFIGからモデル名を確認して。"
	msgCredentialAcquisition = "Vertex AIの認証に失敗したわ。gcloudの設定を確認してみて。"
	msgDecodeFailure         = "[Parse Error] レスポンスをうまく読み取れなかったわ……もう一度試してくれる？"
	msgStreamInterrupted     = "通信が途中で切れちゃったみたい……もう一度聞いてくれる？"
	msgAllRegionsExhausted   = "どのリージョンも混雑してるみたい。少し時間を置いてからもう一度試して。"
	msgUnknown               = "何かエラーが起きたみたい……もう一度試してくれる？"
)

// Classify maps err onto an ErrorKind. Wrapping order matters: the outer
// conditions (exhaustion, interruption, token acquisition) win over the
// provider status they wrap.
func Classify(err error) ErrorKind {
	var exhausted *failover.ExhaustedError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &exhausted):
		return KindAllRegionsExhausted
	case errors.Is(err, failover.ErrStreamInterrupted):
		return KindStreamInterrupted
	case errors.Is(err, ErrCredentialAcquisition), errors.Is(err, auth.ErrTokenUnavailable):
		return KindCredentialAcquisition
	case errors.Is(err, provider.ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, provider.ErrUnknownProvider):
		return KindUnknownProvider
	case errors.Is(err, provider.ErrAuthFailed):
		return KindInvalidCredential
	case errors.Is(err, provider.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, provider.ErrModelNotFound):
		return KindModelNotFound
	case errors.Is(err, provider.ErrServerFault):
		return KindServerFault
	case errors.Is(err, provider.ErrTimeout):
		return KindTimeout
	case errors.Is(err, provider.ErrNetworkUnreachable):
		return KindNetworkUnreachable
	case errors.Is(err, provider.ErrDecodeFailure):
		return KindDecodeFailure
	default:
		return KindUnknown
	}
}

// UserMessage returns the kind of err and the line shown to the user.
func UserMessage(err error) (ErrorKind, string) {
	kind := Classify(err)
	switch kind {
	case KindMissingCredential:
		return kind, msgMissingCredential
	case KindInvalidCredential:
		if errors.Is(err, provider.ErrForbidden) {
			return kind, msgForbidden
		}
		return kind, msgInvalidCredential
	case KindRateLimited:
		return kind, msgRateLimited
	case KindServerFault:
		return kind, msgServerFault
	case KindTimeout:
		return kind, msgTimeout
	case KindNetworkUnreachable:
		return kind, msgNetworkUnreachable
	case KindUnknownProvider:
		return kind, msgUnknownProvider
	case KindModelNotFound:
		return kind, msgModelNotFound
	case KindCredentialAcquisition:
		return kind, msgCredentialAcquisition
	case KindDecodeFailure:
		return kind, msgDecodeFailure
	case KindStreamInterrupted:
		return kind, msgStreamInterrupted
	case KindAllRegionsExhausted:
		return kind, msgAllRegionsExhausted
	default:
		return kind, msgUnknown
	}
}
