// 版权所有 2026 Teddyd Authors. 版权所有.
//
// 本源代码受 MIT 许可证保护, 详见仓库根目录下的 LICENSE 文件.

// teddysim 是玩具设备模拟器, 用于本地验证设备 WebSocket 网关。
// 它以指定 device_id 连接网关, 可发送音频文件（转写）或朗读命令（合成）,
// 并把网关回发的帧打印到标准输出。
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

// deviceFrame 镜像网关的下行帧格式
type deviceFrame struct {
	Type       string  `json:"type"`
	SessionID  string  `json:"session_id,omitempty"`
	Text       string  `json:"text,omitempty"`
	Provider   string  `json:"provider,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Format     string  `json:"format,omitempty"`
	Cached     bool    `json:"cached,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// speakCommand 镜像网关的上行朗读命令
type speakCommand struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Tone     string `json:"tone,omitempty"`
	Language string `json:"language,omitempty"`
}

func main() {
	var (
		addr     = flag.String("addr", "ws://localhost:8080", "网关地址")
		deviceID = flag.String("device", "sim-device-001", "设备 ID")
		audio    = flag.String("audio", "", "要转写的音频文件路径")
		speak    = flag.String("speak", "", "要合成的文本")
		tone     = flag.String("tone", "calm", "合成语气")
		language = flag.String("language", "", "语言代码（ISO-639-1）")
		out      = flag.String("out", "", "合成音频的输出文件路径")
		timeout  = flag.Duration("timeout", 30*time.Second, "单次操作超时")
	)
	flag.Parse()

	if *audio == "" && *speak == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -audio or -speak")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*addr, *deviceID, *audio, *speak, *tone, *language, *out, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "teddysim: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, deviceID, audioPath, speakText, tone, language, outPath string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	url := strings.TrimSuffix(addr, "/") + "/api/v1/device/connect?device_id=" + deviceID
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	conn.SetReadLimit(32 << 20)

	// 网关在连接建立后先回发 session 帧
	hello, err := readFrame(ctx, conn)
	if err != nil {
		return fmt.Errorf("read session frame: %w", err)
	}
	fmt.Printf("connected: session=%s\n", hello.SessionID)

	if audioPath != "" {
		if err := sendAudio(ctx, conn, audioPath); err != nil {
			return err
		}
	}

	if speakText != "" {
		if err := requestSpeech(ctx, conn, speakText, tone, language, outPath); err != nil {
			return err
		}
	}

	return nil
}

// sendAudio 上传录音并打印转写结果
func sendAudio(ctx context.Context, conn *websocket.Conn, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	if err := conn.Write(ctx, websocket.MessageBinary, data); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}

	frame, err := readFrame(ctx, conn)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	if frame.Type == "error" {
		return fmt.Errorf("gateway error: %s", frame.Error)
	}
	fmt.Printf("transcript [%s, confidence=%.2f, cached=%v]: %s\n",
		frame.Provider, frame.Confidence, frame.Cached, frame.Text)
	return nil
}

// requestSpeech 发送朗读命令, 接收元数据帧和紧随其后的音频二进制帧
func requestSpeech(ctx context.Context, conn *websocket.Conn, text, tone, language, outPath string) error {
	cmd := speakCommand{Type: "speak", Text: text, Tone: tone, Language: language}
	body, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, body); err != nil {
		return fmt.Errorf("send speak command: %w", err)
	}

	meta, err := readFrame(ctx, conn)
	if err != nil {
		return fmt.Errorf("read audio metadata: %w", err)
	}
	if meta.Type == "error" {
		return fmt.Errorf("gateway error: %s", meta.Error)
	}

	kind, data, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("read audio frame: %w", err)
	}
	if kind != websocket.MessageBinary {
		return fmt.Errorf("expected binary audio frame, got %v", kind)
	}

	fmt.Printf("audio [%s, format=%s, cached=%v]: %d bytes\n",
		meta.Provider, meta.Format, meta.Cached, len(data))

	if outPath != "" {
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return fmt.Errorf("write audio: %w", err)
		}
		fmt.Printf("saved to %s\n", outPath)
	}
	return nil
}

// readFrame 读取一条 JSON 文本帧
func readFrame(ctx context.Context, conn *websocket.Conn) (*deviceFrame, error) {
	kind, data, err := conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if kind != websocket.MessageText {
		return nil, fmt.Errorf("expected text frame, got %v", kind)
	}
	var frame deviceFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	return &frame, nil
}
