package topology

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// SetupSize はフィルフェーズを表す実験サイズ
const SetupSize = -1

// DefaultCachePort はキャッシュサーバーの既定ポート
const DefaultCachePort = 11211

// ErrIndexOutOfRange はホストインデックスが範囲外の場合のエラー
var ErrIndexOutOfRange = errors.New("host index out of range")

// Role はある実験サイズにおけるホストの役割
type Role int

const (
	RoleIdle Role = iota
	RoleFillTarget
	RoleGenerator
)

func (r Role) String() string {
	switch r {
	case RoleIdle:
		return "Idle"
	case RoleFillTarget:
		return "FillTarget"
	case RoleGenerator:
		return "Generator"
	default:
		return "Unknown"
	}
}

// IndexRange は半開区間 [Start, End) のインデックス範囲
type IndexRange struct {
	Start int
	End   int
}

// Len は範囲に含まれるインデックス数を返す
func (r IndexRange) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains はインデックスが範囲内かを返す
func (r IndexRange) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// Indices は範囲内のインデックスを昇順で返す
func (r IndexRange) Indices() []int {
	out := make([]int, 0, r.Len())
	for i := r.Start; i < r.End; i++ {
		out = append(out, i)
	}
	return out
}

func (r IndexRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Topology はクラスタのホスト順序を保持する（生成後は不変）
type Topology struct {
	hosts     []string
	cachePort int
}

// New は新しいTopologyを作成する
func New(hosts []string, cachePort int) (*Topology, error) {
	if cachePort <= 0 || cachePort > 0xFFFF {
		return nil, fmt.Errorf("invalid cache port %d", cachePort)
	}

	seen := make(map[string]struct{}, len(hosts))
	copied := make([]string, len(hosts))
	for i, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("host %d is empty", i)
		}
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("duplicate host %q at index %d", h, i)
		}
		seen[h] = struct{}{}
		copied[i] = h
	}

	return &Topology{
		hosts:     copied,
		cachePort: cachePort,
	}, nil
}

// Size はクラスタのホスト数を返す
func (t *Topology) Size() int {
	return len(t.hosts)
}

// CachePort はキャッシュサーバーのポートを返す
func (t *Topology) CachePort() int {
	return t.cachePort
}

// Hosts はホスト一覧のコピーを返す
func (t *Topology) Hosts() []string {
	out := make([]string, len(t.hosts))
	copy(out, t.hosts)
	return out
}

// HostAt はインデックスのホストアドレスを返す
func (t *Topology) HostAt(index int) (string, error) {
	if index < 0 || index >= len(t.hosts) {
		return "", fmt.Errorf("%w: %d (cluster size %d)", ErrIndexOutOfRange, index, len(t.hosts))
	}
	return t.hosts[index], nil
}

// CacheEndpoint はホストのキャッシュサーバーエンドポイントを返す
func (t *Topology) CacheEndpoint(index int) (string, error) {
	host, err := t.HostAt(index)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(t.cachePort)), nil
}

// ServerSubset は先頭 experimentSize/2 台のキャッシュエンドポイントを返す
func (t *Topology) ServerSubset(experimentSize int) []string {
	n := clamp(experimentSize/2, len(t.hosts))
	if experimentSize < 2 || n == 0 {
		return []string{}
	}

	servers := make([]string, 0, n)
	for i := range n {
		servers = append(servers, net.JoinHostPort(t.hosts[i], strconv.Itoa(t.cachePort)))
	}
	return servers
}

// ServerList はServerSubsetを負荷生成ツールの複数サーバー指定形式で返す
func (t *Topology) ServerList(experimentSize int) string {
	return strings.Join(t.ServerSubset(experimentSize), ",")
}

// GeneratorIndices は負荷生成を行うホストのインデックス範囲を返す
func (t *Topology) GeneratorIndices(experimentSize int) IndexRange {
	return generatorRange(experimentSize, len(t.hosts))
}

// FillTargetIndices はフィルフェーズで自身を埋めるホストの範囲を返す
func (t *Topology) FillTargetIndices() IndexRange {
	return fillRange(len(t.hosts))
}

// Targets はコーディネーターが接続すべきホストの範囲を返す
func (t *Topology) Targets(experimentSize int) IndexRange {
	if experimentSize == SetupSize {
		return t.FillTargetIndices()
	}
	return t.GeneratorIndices(experimentSize)
}

// RoleOf はホストの役割を返す
func (t *Topology) RoleOf(index, experimentSize int) Role {
	return RoleOf(index, experimentSize, len(t.hosts))
}

// RoleOf は (index, experimentSize, clusterSize) のみから役割を決める純粋関数
func RoleOf(index, experimentSize, clusterSize int) Role {
	if index < 0 || index >= clusterSize {
		return RoleIdle
	}

	switch {
	case experimentSize == SetupSize:
		if fillRange(clusterSize).Contains(index) {
			return RoleFillTarget
		}
	case experimentSize >= 0:
		if generatorRange(experimentSize, clusterSize).Contains(index) {
			return RoleGenerator
		}
	}
	return RoleIdle
}

func generatorRange(experimentSize, clusterSize int) IndexRange {
	if experimentSize < 2 {
		return IndexRange{}
	}
	start := clamp(experimentSize/2, clusterSize)
	end := clamp(experimentSize, clusterSize)
	return IndexRange{Start: start, End: end}
}

func fillRange(clusterSize int) IndexRange {
	return IndexRange{Start: 0, End: clusterSize / 2}
}

func clamp(v, upper int) int {
	if v < 0 {
		return 0
	}
	if v > upper {
		return upper
	}
	return v
}
