package gamenet

import (
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// udpConnector is the production transport: a dialed sender socket toward
// the peer and a bound receiver socket for inbound datagrams.
type udpConnector struct {
	remoteAddress string
	remotePort    int
	localPort     int
	udpSender     *net.UDPConn
	udpReceiver   *net.UDPConn
	readTimeout   time.Duration
}

func newUDPConnector(remoteAddress string, remotePort, localPort int) *udpConnector {
	return &udpConnector{
		remoteAddress: remoteAddress,
		remotePort:    remotePort,
		localPort:     localPort,
	}
}

func resolveUDPAddress(host string, port int) (*net.UDPAddr, error) {
	address := host + ":" + strconv.Itoa(port)
	udpAddress, err := net.ResolveUDPAddr("udp4", address)
	return udpAddress, errors.Wrapf(err, "resolving %s", address)
}

func (connector *udpConnector) Open() error {
	remoteAddress, err := resolveUDPAddress(connector.remoteAddress, connector.remotePort)
	if err != nil {
		return err
	}
	localAddress, err := resolveUDPAddress("localhost", connector.localPort)
	if err != nil {
		return err
	}
	connector.udpSender, err = net.DialUDP("udp4", nil, remoteAddress)
	if err != nil {
		return errors.Wrap(err, "dialing peer")
	}
	connector.udpReceiver, err = net.ListenUDP("udp4", localAddress)
	return errors.Wrap(err, "binding receiver")
}

func (connector *udpConnector) Close() error {
	senderError := connector.udpSender.Close()
	receiverError := connector.udpReceiver.Close()
	if senderError != nil {
		return senderError
	}
	return receiverError
}

func (connector *udpConnector) Write(buffer []byte) (StatusCode, int, error) {
	n, err := connector.udpSender.Write(buffer)
	if err != nil {
		return Fail, n, err
	}
	return Success, n, nil
}

func (connector *udpConnector) Read(buffer []byte) (StatusCode, int, error) {
	if connector.readTimeout > 0 {
		err := connector.udpReceiver.SetReadDeadline(time.Now().Add(connector.readTimeout))
		if err != nil {
			return Fail, 0, err
		}
	}
	n, err := connector.udpReceiver.Read(buffer)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Timeout, n, nil
		}
		return Fail, n, err
	}
	return Success, n, nil
}

func (connector *udpConnector) SetReadTimeout(t time.Duration) {
	connector.readTimeout = t
}
