package middleware

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"poi-cluster/internal/locate"
	"poi-cluster/internal/logger"
)

// 文档注释：令牌桶限流（每秒）
// 背景：视口拖动会产生突发请求；按环境变量开关与速率配置，超过速率直接丢弃。
// 约束：不做排队，仅返回 429；桶在每个整秒边界补满。
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	mu       sync.Mutex
	now      func() time.Time
}

func NewTokenBucket(capacity int) *TokenBucket {
	return &TokenBucket{capacity: capacity, tokens: capacity, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// perClient 每个客户端 IP 一只桶；超过 maxClients 时整表重置
type perClient struct {
	mu         sync.Mutex
	qps        int
	maxClients int
	buckets    map[string]*TokenBucket
	now        func() time.Time
}

func (p *perClient) allow(ip string) bool {
	p.mu.Lock()
	b, ok := p.buckets[ip]
	if !ok {
		if len(p.buckets) >= p.maxClients {
			p.buckets = make(map[string]*TokenBucket)
		}
		b = NewTokenBucket(p.qps)
		if p.now != nil {
			b.now = p.now
			b.lastSec = p.now().Unix()
		}
		p.buckets[ip] = b
	}
	p.mu.Unlock()
	return b.allow()
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			return n
		}
	}
	return def
}

// Limit 以全局桶与可选的按 IP 桶包装 next；任一桶耗尽即返回 429
func Limit(next http.Handler, global *TokenBucket, perIPQPS int) http.Handler {
	var pc *perClient
	if perIPQPS > 0 {
		pc = &perClient{qps: perIPQPS, maxClients: 65536, buckets: make(map[string]*TokenBucket)}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if global != nil && !global.allow() {
			logger.L().Debug("rate_limited", "scope", "global", "path", r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if pc != nil {
			if ip := locate.ClientIP(r); !pc.allow(ip) {
				logger.L().Debug("rate_limited", "scope", "ip", "ip", ip, "path", r.URL.Path)
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap 读取 RATE_LIMIT_ENABLED / RATE_LIMIT_QPS / RATE_LIMIT_PER_IP_QPS；未开启时原样返回 next
func Wrap(next http.Handler) http.Handler {
	if os.Getenv("RATE_LIMIT_ENABLED") != "true" {
		return next
	}
	qps := envInt("RATE_LIMIT_QPS", 200)
	perIP := envInt("RATE_LIMIT_PER_IP_QPS", 0)
	logger.L().Info("rate_limit_enabled", "qps", qps, "per_ip_qps", perIP)
	return Limit(next, NewTokenBucket(qps), perIP)
}
