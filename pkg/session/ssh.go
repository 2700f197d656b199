package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
)

// sshTransport drives one interactive shell over SSH. Unlike per-command
// exec, network CLIs need a single long-lived pty so mode changes
// (configure, terminal settings) persist between commands.
type sshTransport struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser

	mu      sync.Mutex
	buf     strings.Builder
	readErr error
	notify  chan struct{}
}

// DialSSH opens an interactive shell transport to the target. It is the
// default Dialer.
func DialSSH(ctx context.Context, target Target) (Transport, error) {
	port := target.Port
	if port == 0 {
		port = 22
	}
	addr := fmt.Sprintf("%s:%d", target.Host, port)

	config := &ssh.ClientConfig{
		User: target.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(target.Password),
		},
		// Lab/test devices — production would verify host keys.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	cc, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake %s: %w", addr, err)
	}
	client := ssh.NewClient(cc, chans, reqs)

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("SSH session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 115200,
		ssh.TTY_OP_OSPEED: 115200,
	}
	if err := sess.RequestPty("xterm", 0, 512, modes); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := sess.Shell(); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}

	t := &sshTransport{
		client:  client,
		session: sess,
		stdin:   stdin,
		notify:  make(chan struct{}, 1),
	}
	go t.readLoop(stdout)
	return t, nil
}

func (t *sshTransport) readLoop(r io.Reader) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		t.mu.Lock()
		if n > 0 {
			t.buf.Write(chunk[:n])
		}
		if err != nil {
			t.readErr = err
		}
		t.mu.Unlock()
		select {
		case t.notify <- struct{}{}:
		default:
		}
		if err != nil {
			return
		}
	}
}

func (t *sshTransport) Send(line string) error {
	if _, err := io.WriteString(t.stdin, line+"\n"); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	return nil
}

// ReadUntil drains accumulated output once the pattern matches the final
// line of the buffer. Matching on the tail only keeps banner lines that
// merely resemble a prompt from cutting output short mid-stream.
func (t *sshTransport) ReadUntil(ctx context.Context, pattern *regexp.Regexp) (string, error) {
	for {
		t.mu.Lock()
		text := t.buf.String()
		if pattern.MatchString(lastLine(text)) && strings.TrimSpace(text) != "" {
			t.buf.Reset()
			t.mu.Unlock()
			return text, nil
		}
		readErr := t.readErr
		if readErr != nil {
			t.buf.Reset()
			t.mu.Unlock()
			return text, fmt.Errorf("transport read: %w", readErr)
		}
		t.mu.Unlock()

		select {
		case <-t.notify:
		case <-ctx.Done():
			t.mu.Lock()
			partial := t.buf.String()
			t.buf.Reset()
			t.mu.Unlock()
			return partial, ctx.Err()
		}
	}
}

func (t *sshTransport) Close() error {
	t.stdin.Close()
	t.session.Close()
	return t.client.Close()
}

func lastLine(text string) string {
	text = strings.TrimRight(text, "\r\n")
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimRight(text, "\r")
}
