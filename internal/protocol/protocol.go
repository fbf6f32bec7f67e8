// Package protocol implements the coordinator/worker wire format.
//
// Coordinator -> worker: one ASCII decimal line, optionally signed, ending
// in '\n' ("-1\n" for the fill phase, "N\n" for a run at scale N).
// Worker -> coordinator: exactly one byte once the local invocation has
// finished. The byte value carries no meaning.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SetupSize はフィルフェーズを表す実験サイズ
const SetupSize = -1

// AckByte はワーカーが完了時に書き込む1バイト
const AckByte byte = 0x06

// maxLineLength はコマンド行の最大長
const maxLineLength = 32

var (
	// ErrMalformedCommand はコマンド行が不正な場合のエラー
	ErrMalformedCommand = errors.New("malformed command line")
	// ErrMissingAck は確認応答バイトを受信できなかった場合のエラー
	ErrMissingAck = errors.New("missing acknowledgement byte")
)

// RunRequest はコーディネーターからワーカーへの指示
type RunRequest struct {
	ExperimentSize int
}

// IsSetup はフィルフェーズの要求かを返す
func (r RunRequest) IsSetup() bool {
	return r.ExperimentSize == SetupSize
}

func (r RunRequest) String() string {
	if r.IsSetup() {
		return "setup"
	}
	return fmt.Sprintf("run(size=%d)", r.ExperimentSize)
}

// Validate は要求を検証する
func (r RunRequest) Validate() error {
	if r.ExperimentSize < SetupSize {
		return fmt.Errorf("%w: experiment size %d", ErrMalformedCommand, r.ExperimentSize)
	}
	return nil
}

// FormatRequest は要求を1行にエンコードする
func FormatRequest(r RunRequest) []byte {
	return []byte(strconv.Itoa(r.ExperimentSize) + "\n")
}

// WriteRequest は要求を書き込む
func WriteRequest(w io.Writer, r RunRequest) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if _, err := w.Write(FormatRequest(r)); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

// ParseRequest は1行分の文字列を要求に変換する
func ParseRequest(line string) (RunRequest, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return RunRequest{}, fmt.Errorf("%w: empty line", ErrMalformedCommand)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return RunRequest{}, fmt.Errorf("%w: %q", ErrMalformedCommand, s)
	}

	req := RunRequest{ExperimentSize: n}
	if err := req.Validate(); err != nil {
		return RunRequest{}, err
	}
	return req, nil
}

// ReadRequest は改行で終わる1行を読み取り要求に変換する
func ReadRequest(r *bufio.Reader) (RunRequest, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return RunRequest{}, fmt.Errorf("%w: connection closed before newline", ErrMalformedCommand)
			}
			return RunRequest{}, fmt.Errorf("failed to read request: %w", err)
		}
		if b == '\n' {
			break
		}
		if sb.Len() >= maxLineLength {
			return RunRequest{}, fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedCommand, maxLineLength)
		}
		sb.WriteByte(b)
	}
	return ParseRequest(sb.String())
}

// WriteAck は確認応答バイトを書き込む
func WriteAck(w io.Writer) error {
	if _, err := w.Write([]byte{AckByte}); err != nil {
		return fmt.Errorf("failed to write ack: %w", err)
	}
	return nil
}

// ReadAck はちょうど1バイトを読み取る（値は無視する）
func ReadAck(r io.Reader) error {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrMissingAck
		}
		return fmt.Errorf("%w: %w", ErrMissingAck, err)
	}
	return nil
}
