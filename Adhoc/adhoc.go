package Adhoc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"EdgeTpuDetServer/logger"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EdgeTpuInstance = 0x2005
	TimeOutSeconds  = 5
)

type RegisterRequest struct {
	Id            string `json:"id"`
	IP            string `json:"ip"`
	Port          int    `json:"port"`
	InstanceClass int    `json:"instanceClass"`
	Model         string `json:"model"`
	TimeStamp     int64  `json:"timestamp"`
}

type RegisterResponse struct {
	Id      string `json:"id"`
	Success bool   `json:"success"`
}

type RegServerConfig struct {
	Port     int
	Addr     string
	Interval time.Duration
}

func (reg *RegServerConfig) SetAddress(addr string, port int) {
	reg.Addr = addr
	reg.Port = port
}

func (reg RegServerConfig) url() string {
	return fmt.Sprintf("http://%s/api/register", net.JoinHostPort(reg.Addr, fmt.Sprint(reg.Port)))
}

// GetOutboundIP returns the local address used for outbound traffic. No
// packet is sent: dialing UDP only consults the routing table.
func GetOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}

// SendAliveMessage registers this instance with the registration server and
// repeats the registration every interval until ctx is done.
func SendAliveMessage(ctx context.Context, wg *sync.WaitGroup, reg RegServerConfig, ip string, port int, model string) {
	defer wg.Done()
	interval := reg.Interval
	if interval <= 0 {
		interval = TimeOutSeconds * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	client := resty.New().SetTimeout(TimeOutSeconds * time.Second)
	id := uuid.NewString()
	url := reg.url()
	send := func() {
		var respBody RegisterResponse
		resp, err := client.R().
			SetContext(ctx).
			SetBody(RegisterRequest{
				Id:            id,
				IP:            ip,
				Port:          port,
				InstanceClass: EdgeTpuInstance,
				Model:         model,
				TimeStamp:     time.Now().Unix(),
			}).
			SetResult(&respBody).
			Post(url)
		if err != nil {
			if ctx.Err() == nil {
				logger.Log().Error("register request failed", zap.String("url", url), zap.Error(err))
			}
			return
		}
		if resp.IsError() {
			logger.Log().Error("register server returned error",
				zap.String("status", resp.Status()), zap.String("body", resp.String()))
			return
		}
		logger.Log().Debug("registered", zap.String("id", respBody.Id), zap.Bool("success", respBody.Success))
	}

	send()
	for {
		select {
		case <-ctx.Done():
			logger.Log().Info("SendAliveMessage context cancelled, exiting goroutine.")
			return
		case <-ticker.C:
			send()
		}
	}
}
