package main

import (
	"crypto/tls"
	"encoding/binary"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ================= 云端语音识别 =================
// DashScope paraformer 实时识别，duplex websocket：
// 上行持续推 PCM 分片，下行吐 result-generated 事件。
// 句中结果走 OnPartial，句末（sentence_end）走 OnFinal，
// task-failed 折算成 OnError 错误码。分段逻辑不在这里，全部交给 Segmenter。

const asrChunkBytes = 3200

// 连续静音帧超过该值后暂停上传（能量 VAD 判定），省流量也省识别额度。
// 保留少量“尾巴”帧，避免句尾被掐。
const asrSilenceHold = 25 // 25 帧 * 16ms ≈ 400ms

type CloudRecognizer struct {
	cfg *Config
	mux *MicMux

	mu         sync.Mutex
	running    bool
	conn       *websocket.Conn
	cb         RecognitionCallbacks
	taskID     string
	pending    []byte
	silenceRun int
}

func NewCloudRecognizer(cfg *Config, mux *MicMux) *CloudRecognizer {
	return &CloudRecognizer{cfg: cfg, mux: mux}
}

func (r *CloudRecognizer) Initialize() error {
	// 无本地资源要加载；连接在每次 Start 时新建
	return nil
}

// Start 建立识别会话并武装到麦克风。可在 Stop 之后反复调用。
func (r *CloudRecognizer) Start(cb RecognitionCallbacks) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	dialer := websocket.Dialer{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	headers := http.Header{}
	headers.Add("Authorization", "Bearer "+r.cfg.DashAPIKey)
	conn, _, err := dialer.Dial(r.cfg.ASRWsURL, headers)
	if err != nil {
		return err
	}

	taskID := uuid.NewString()
	if err := conn.WriteJSON(map[string]interface{}{
		"header": map[string]interface{}{"task_id": taskID, "action": "run-task", "streaming": "duplex"},
		"payload": map[string]interface{}{
			"task_group": "audio", "task": "asr", "function": "recognition",
			"model":      r.cfg.ASRModel,
			"parameters": map[string]interface{}{"format": "pcm", "sample_rate": r.cfg.ASRSampleRate},
			"input":      map[string]interface{}{},
		},
	}); err != nil {
		conn.Close()
		return err
	}

	r.running = true
	r.conn = conn
	r.cb = cb
	r.taskID = taskID
	r.pending = r.pending[:0]
	r.silenceRun = 0

	go r.recvLoop(conn, cb)
	r.mux.Attach(r)
	return nil
}

// Stop 解除武装并关闭识别会话。幂等，任意状态下调用安全。
func (r *CloudRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	r.mux.Detach(r)

	// 尽力而为的优雅收尾；对端已断时忽略错误
	_ = r.conn.WriteJSON(map[string]interface{}{
		"header":  map[string]interface{}{"task_id": r.taskID, "action": "finish-task", "streaming": "duplex"},
		"payload": map[string]interface{}{"input": map[string]interface{}{}},
	})
	r.conn.Close()
	r.conn = nil
}

// AcceptFrames 麦克风帧入口（micLoop 协程调用）。
func (r *CloudRecognizer) AcceptFrames(frame []int16, speech bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}

	if speech {
		r.silenceRun = 0
	} else {
		r.silenceRun++
		if r.silenceRun > asrSilenceHold {
			return
		}
	}

	buf := make([]byte, len(frame)*2)
	for i, v := range frame {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	r.pending = append(r.pending, buf...)

	for len(r.pending) >= asrChunkBytes {
		chunk := r.pending[:asrChunkBytes]
		if err := r.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			log.Printf("⚠️ [ASR] 上行写入失败: %v", err)
			r.pending = r.pending[:0]
			return
		}
		r.pending = r.pending[asrChunkBytes:]
	}
}

func (r *CloudRecognizer) recvLoop(conn *websocket.Conn, cb RecognitionCallbacks) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if r.isCurrent(conn) {
				// 非主动 Stop 导致的断开：按引擎错误上报
				r.fireError(conn, cb, -1)
			}
			return
		}

		var resp map[string]interface{}
		if err := json.Unmarshal(msg, &resp); err != nil {
			continue
		}
		header, _ := resp["header"].(map[string]interface{})
		payload, _ := resp["payload"].(map[string]interface{})

		switch header["event"] {
		case "result-generated":
			text, final := parseSentence(payload)
			if text == "" || !r.isCurrent(conn) {
				continue
			}
			if final {
				if cb.OnFinal != nil {
					cb.OnFinal(text)
				}
			} else {
				if cb.OnPartial != nil {
					cb.OnPartial(text)
				}
			}
		case "task-failed":
			code := 500
			if v, ok := header["status_code"].(float64); ok {
				code = int(v)
			}
			log.Printf("❌ [ASR] task-failed: code=%d message=%v", code, header["error_message"])
			r.fireError(conn, cb, code)
			return
		case "task-finished":
			return
		}
	}
}

// parseSentence 解析 result-generated：返回句子文本和是否句末。
func parseSentence(payload map[string]interface{}) (string, bool) {
	output, ok := payload["output"].(map[string]interface{})
	if !ok {
		return "", false
	}
	sentence, ok := output["sentence"].(map[string]interface{})
	if !ok {
		return "", false
	}
	text, _ := sentence["text"].(string)
	if end, ok := sentence["sentence_end"].(bool); ok {
		return text, end
	}
	// 旧版协议没有 sentence_end 字段，用 end_time 是否已填判断
	_, hasEnd := sentence["end_time"].(float64)
	return text, hasEnd
}

// isCurrent 本连接是否仍是当前活跃会话（Stop/重启后旧连接的回调一律静默丢弃）。
func (r *CloudRecognizer) isCurrent(conn *websocket.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running && r.conn == conn
}

// fireError 上报终止性错误并收尾本会话。
func (r *CloudRecognizer) fireError(conn *websocket.Conn, cb RecognitionCallbacks, code int) {
	r.mu.Lock()
	if !r.running || r.conn != conn {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mux.Detach(r)
	r.conn.Close()
	r.conn = nil
	r.mu.Unlock()

	if cb.OnError != nil {
		cb.OnError(code)
	}
}
