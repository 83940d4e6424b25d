// Package pceclient implements the PCE (Phone Book Client Equipment) core:
// a connected session against a PSE that issues GET/SETPATH requests and
// tracks the client's notion of the current virtual-folder location.
package pceclient

import (
	"fmt"
	"net"
	"time"

	"github.com/bmwcarit/gopbap/apparams"
	"github.com/bmwcarit/gopbap/obex"
	"github.com/bmwcarit/gopbap/pbaperrors"
	"github.com/charmbracelet/log"
)

// Config holds client configuration, defaults filled the way
// client.Config/Connect fills theirs.
type Config struct {
	ConnectTimeout time.Duration // default: 30s
	ReadTimeout    time.Duration // default: 60s
	WriteTimeout   time.Duration // default: 60s
	MaxPacketLen   uint16        // default: 0xFFFF
	Target         []byte        // OBEX Target header, e.g. obex.PBAPPSERecord.TargetUUID
}

// Client is a connected PCE session: the OBEX transport plus the
// current_dir state §4.G tracks across SETPATH calls.
type Client struct {
	conn       *obex.Conn
	nc         net.Conn
	currentDir string
}

// Connect dials address, performs OBEX CONNECT with cfg.Target, and returns
// a ready Client rooted at "/".
func Connect(address string, cfg Config) (*Client, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.MaxPacketLen == 0 {
		cfg.MaxPacketLen = 0xFFFF
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	nc, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("pceclient: failed to connect: %w", err)
	}

	if err := nc.SetReadDeadline(time.Now().Add(cfg.ReadTimeout)); err != nil {
		nc.Close()
		return nil, fmt.Errorf("pceclient: failed to set read deadline: %w", err)
	}
	if err := nc.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout)); err != nil {
		nc.Close()
		return nil, fmt.Errorf("pceclient: failed to set write deadline: %w", err)
	}

	oc := obex.NewConn(nc)
	var headers obex.HeaderSet
	if len(cfg.Target) > 0 {
		headers = append(headers, obex.Header{ID: obex.HeaderTarget, Bytes: cfg.Target})
	}
	if err := oc.WriteConnect(cfg.MaxPacketLen, headers); err != nil {
		nc.Close()
		return nil, fmt.Errorf("pceclient: failed to send CONNECT: %w", err)
	}
	code, _, err := oc.ReadConnectAccept()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("pceclient: failed to read CONNECT response: %w", err)
	}
	if !code.IsSuccess() {
		nc.Close()
		return nil, fmt.Errorf("pceclient: CONNECT rejected: %s", code)
	}

	log.Info("pceclient: connected", "remote_addr", address)
	return &Client{conn: oc, nc: nc, currentDir: "/"}, nil
}

// CurrentDir reports the client's local view of the server's position in
// the virtual folder tree.
func (c *Client) CurrentDir() string {
	return c.currentDir
}

// Close sends DISCONNECT and closes the transport.
func (c *Client) Close() error {
	req := &obex.Request{Opcode: obex.OpDisconnect}
	if err := c.conn.WriteRequest(req); err != nil {
		log.Warn("pceclient: failed to send DISCONNECT", "error", err)
	} else if resp, err := c.conn.ReadResponse(); err != nil || !resp.Code.IsSuccess() {
		log.Warn("pceclient: DISCONNECT not acknowledged", "error", err)
	}
	return c.nc.Close()
}

// getObject issues one final GET request with the given Name/Type/
// Application-Parameters headers and returns the response on success, or a
// *pbaperrors.Error wrapping the failure response code.
func (c *Client) getObject(op string, name, objType string, appParams []byte) (*obex.Response, error) {
	headers := obex.HeaderSet{obex.NewNameHeader(name), obex.NewTypeHeader(objType)}
	if len(appParams) > 0 {
		headers = append(headers, obex.NewAppParamsHeader(appParams))
	}
	if err := c.conn.WriteRequest(&obex.Request{Opcode: obex.OpGetFinal, Headers: headers}); err != nil {
		return nil, pbaperrors.Wrap(pbaperrors.KindTransportError, op, "failed to send GET", err)
	}
	resp, err := c.conn.ReadResponse()
	if err != nil {
		return nil, pbaperrors.Wrap(pbaperrors.KindTransportError, op, "failed to read GET response", err)
	}
	if !resp.Code.IsSuccess() {
		log.Warn("pceclient: GET failed", "op", op, "name", name, "response_code", resp.Code)
		return nil, pbaperrors.New(pbaperrors.KindFromResponseCode(resp.Code), op, fmt.Sprintf("server responded %s", resp.Code))
	}
	return resp, nil
}

// pullBody drains a (possibly fragmented) GET exchange, sending one more
// final GET for every Continue response until Success, and returns the
// concatenated body plus the response parameters carried on the last
// fragment that had any (PhonebookSize / NewMissedCalls, §3).
func (c *Client) pullBody(op, name, objType string, appParams []byte) (apparams.ResponseParams, []byte, error) {
	resp, err := c.getObject(op, name, objType, appParams)
	if err != nil {
		return apparams.ResponseParams{}, nil, err
	}
	var body []byte
	var rp apparams.ResponseParams
	for {
		if bh, ok := resp.Headers.Get(obex.HeaderBody); ok {
			body = append(body, bh.Bytes...)
		}
		if eob, ok := resp.Headers.Get(obex.HeaderEndOfBody); ok {
			body = append(body, eob.Bytes...)
		}
		if ah, ok := resp.Headers.Get(obex.HeaderApplicationParameters); ok {
			if decoded, err := apparams.DecodeResponse(ah.Bytes); err == nil {
				rp = decoded
			}
		}
		if resp.Code == obex.Success {
			return rp, body, nil
		}
		resp, err = c.getObject(op, name, objType, appParams)
		if err != nil {
			return apparams.ResponseParams{}, nil, err
		}
	}
}
