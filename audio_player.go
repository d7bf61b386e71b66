package main

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// pcmPlayer 单次播放会话：一个 aplay 物理进程，PCM 从 stdin 灌入。
// Finish 等播完退出；Kill 强制中止，幂等。
type pcmPlayer struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	killed bool
}

func newPCMPlayer(device string, sampleRate int) (*pcmPlayer, error) {
	cmd := exec.Command("aplay",
		"-D", device,
		"-q",
		"-t", "raw",
		"-r", strconv.Itoa(sampleRate),
		"-f", "S16_LE",
		"-c", "1",
		"-B", "20000",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("获取播放管道失败: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("启动 aplay 失败: %w", err)
	}
	return &pcmPlayer{cmd: cmd, stdin: stdin}, nil
}

func (p *pcmPlayer) Write(pcm []byte) error {
	p.mu.Lock()
	stdin := p.stdin
	killed := p.killed
	p.mu.Unlock()
	if killed || stdin == nil {
		return nil
	}
	_, err := stdin.Write(pcm)
	return err
}

// Finish 关闭输入流并等待 aplay 把缓冲播完退出。
func (p *pcmPlayer) Finish() error {
	p.mu.Lock()
	if p.stdin != nil {
		p.stdin.Close()
		p.stdin = nil
	}
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil {
		return nil
	}
	return cmd.Wait()
}

// Kill 强制中止播放。重复调用安全。
func (p *pcmPlayer) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.killed {
		return
	}
	p.killed = true
	if p.stdin != nil {
		p.stdin.Close()
		p.stdin = nil
	}
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}
