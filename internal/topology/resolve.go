package topology

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrHostNotFound はローカルホストがトポロジに含まれない場合のエラー
var ErrHostNotFound = errors.New("local host not found in topology")

// IndexOf はアドレスに一致するホストのインデックスを返す
func (t *Topology) IndexOf(addr string) (int, bool) {
	for i, h := range t.hosts {
		if h == addr {
			return i, true
		}
	}
	return -1, false
}

// Resolve は候補アドレスのうち最初にトポロジに一致したもののインデックスを返す
func (t *Topology) Resolve(candidates []string) (int, error) {
	for _, c := range candidates {
		if i, ok := t.IndexOf(c); ok {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w (candidates: %v)", ErrHostNotFound, candidates)
}

// LocalAddresses はこのマシンのホスト名とインターフェースアドレスを返す
func LocalAddresses() ([]string, error) {
	var out []string

	if name, err := os.Hostname(); err == nil {
		out = append(out, name)
		// ホスト名から引けるアドレスも候補に含める
		if addrs, err := net.LookupHost(name); err == nil {
			out = append(out, addrs...)
		}
	}

	ifaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return out, fmt.Errorf("failed to list interface addresses: %w", err)
	}
	for _, a := range ifaceAddrs {
		if ipNet, ok := a.(*net.IPNet); ok {
			out = append(out, ipNet.IP.String())
		}
	}
	return out, nil
}
