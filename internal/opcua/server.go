package opcua

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/awcullen/opcua/server"
	"github.com/awcullen/opcua/ua"
	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/steelmill-kpi/internal/card"
)

const (
	pkiDir   = "./pki"
	certFile = "./pki/server.crt"
	keyFile  = "./pki/server.key"

	// All card nodes live in one namespace under one folder
	dashboardNamespace uint16 = 2
	dashboardFolder           = "KPIDashboard"
)

// cardNodes holds the variable nodes published for one card
type cardNodes struct {
	actual     *server.VariableNode
	benchmark  *server.VariableNode
	percentage *server.VariableNode
	status     *server.VariableNode
	title      *server.VariableNode
}

// Server publishes the live card collection as OPC UA variable nodes.
// When the OPC UA stack cannot start (missing PKI, port in use) the server
// degrades to a value-storage mode and the dashboard keeps running.
type Server struct {
	srv  *server.Server
	port int
	name string

	mu    sync.Mutex
	nodes map[string]*cardNodes // keyed by card ID
}

// NewServer creates a new OPC UA server for the given port
func NewServer(port int, serviceName string) *Server {
	return &Server{
		port:  port,
		name:  serviceName,
		nodes: make(map[string]*cardNodes),
	}
}

// Start starts the OPC UA server
func (s *Server) Start(ctx context.Context) error {
	endpoint := fmt.Sprintf("opc.tcp://0.0.0.0:%d", s.port)

	log.Info().
		Int("port", s.port).
		Str("endpoint", endpoint).
		Msg("Starting OPC UA server")

	if err := ensurePKI(s.name); err != nil {
		log.Warn().Err(err).Msg("Failed to create PKI - OPC UA server disabled")
		return nil
	}

	var srv *server.Server
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn().
					Interface("panic", r).
					Msg("OPC UA server creation panicked - running in value storage mode only")
			}
		}()

		var err error
		srv, err = server.New(
			ua.ApplicationDescription{
				ApplicationURI:  "urn:steelmill-kpi:dashboard",
				ProductURI:      "urn:steelmill-kpi",
				ApplicationName: ua.LocalizedText{Text: s.name, Locale: "en"},
				ApplicationType: ua.ApplicationTypeServer,
			},
			certFile,
			keyFile,
			endpoint,
			server.WithAnonymousIdentity(true),
			server.WithSecurityPolicyNone(true),
			server.WithInsecureSkipVerify(),
		)
		if err != nil {
			log.Warn().
				Err(err).
				Msg("OPC UA server creation failed - running in value storage mode only")
			srv = nil
		}
	}()

	if srv == nil {
		return nil
	}

	s.srv = srv

	if err := s.createFolder(); err != nil {
		log.Error().Err(err).Msg("Failed to create OPC UA dashboard folder")
		return err
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("OPC UA server panic")
			}
		}()
		if err := srv.ListenAndServe(); err != nil {
			log.Error().Err(err).Msg("OPC UA server error")
		}
	}()

	log.Info().Msg("OPC UA server started successfully")
	return nil
}

// Stop stops the OPC UA server
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Close()
	}
	return nil
}

// SyncCards publishes the current collection: nodes are created for unseen
// cards and values refreshed for all. Nodes of deleted cards are left in
// place with their last values.
func (s *Server) SyncCards(cards []card.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, c := range cards {
		nodes, ok := s.nodes[c.ID]
		if !ok {
			if s.srv == nil {
				continue
			}
			var err error
			nodes, err = s.addCardNodes(c)
			if err != nil {
				log.Warn().Err(err).Str("card", c.ID).Msg("Failed to add OPC UA nodes for card")
				continue
			}
			s.nodes[c.ID] = nodes
		}

		setValue(nodes.actual, c.Data.Actual, now)
		setValue(nodes.benchmark, c.Data.Benchmark, now)
		setValue(nodes.percentage, c.Data.Percentage, now)
		setValue(nodes.status, statusOf(c), now)
		setValue(nodes.title, c.Title, now)
	}
}

func setValue(node *server.VariableNode, value interface{}, now time.Time) {
	if node == nil {
		return
	}
	node.SetValue(ua.NewDataValue(value, 0, now, 0, now, 0))
}

func statusOf(c card.Card) string {
	// Mirrors the formatter banding without importing the display layer
	switch {
	case c.Data.Percentage >= 100:
		return "excellent"
	case c.Data.Percentage >= 80:
		return "good"
	case c.Data.Percentage >= 60:
		return "average"
	default:
		return "poor"
	}
}

// createFolder creates the dashboard folder under the Objects folder
func (s *Server) createFolder() error {
	nm := s.srv.NamespaceManager()

	folder := server.NewObjectNode(
		s.srv,
		ua.NodeIDString{NamespaceIndex: dashboardNamespace, ID: dashboardFolder},
		ua.QualifiedName{NamespaceIndex: dashboardNamespace, Name: dashboardFolder},
		ua.LocalizedText{Text: dashboardFolder},
		ua.LocalizedText{Text: "Live steel production KPI cards"},
		nil,
		[]ua.Reference{
			{
				ReferenceTypeID: ua.ReferenceTypeIDOrganizes,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.ObjectIDObjectsFolder},
			},
		},
		0,
	)
	nm.AddNode(folder)
	return nil
}

// addCardNodes creates the five variable nodes for one card
func (s *Server) addCardNodes(c card.Card) (*cardNodes, error) {
	nodes := &cardNodes{}
	var err error

	if nodes.actual, err = s.addVariable(c.ID, "Actual", "Current simulated hourly value", ua.DataTypeIDDouble, c.Data.Actual); err != nil {
		return nil, err
	}
	if nodes.benchmark, err = s.addVariable(c.ID, "Benchmark", "Hourly target value", ua.DataTypeIDDouble, c.Data.Benchmark); err != nil {
		return nil, err
	}
	if nodes.percentage, err = s.addVariable(c.ID, "Percentage", "Achievement percentage", ua.DataTypeIDDouble, c.Data.Percentage); err != nil {
		return nil, err
	}
	if nodes.status, err = s.addVariable(c.ID, "Status", "Achievement band", ua.DataTypeIDString, statusOf(c)); err != nil {
		return nil, err
	}
	if nodes.title, err = s.addVariable(c.ID, "Title", "Card title", ua.DataTypeIDString, c.Title); err != nil {
		return nil, err
	}

	log.Debug().Str("card", c.ID).Msg("Registered OPC UA nodes for card")
	return nodes, nil
}

func (s *Server) addVariable(cardID, name, description string, dataType ua.NodeID, initial interface{}) (*server.VariableNode, error) {
	nm := s.srv.NamespaceManager()
	nodeID := fmt.Sprintf("%s.%s.%s", dashboardFolder, cardID, name)

	varNode := server.NewVariableNode(
		s.srv,
		ua.NodeIDString{NamespaceIndex: dashboardNamespace, ID: nodeID},
		ua.QualifiedName{NamespaceIndex: dashboardNamespace, Name: cardID + "." + name},
		ua.LocalizedText{Text: name},
		ua.LocalizedText{Text: description},
		nil,
		[]ua.Reference{
			{
				ReferenceTypeID: ua.ReferenceTypeIDHasComponent,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.NodeIDString{NamespaceIndex: dashboardNamespace, ID: dashboardFolder}},
			},
		},
		ua.NewDataValue(initial, 0, time.Now().UTC(), 0, time.Now().UTC(), 0),
		dataType,
		ua.ValueRankScalar,
		[]uint32{},
		ua.AccessLevelsCurrentRead,
		250.0,
		false,
		nil,
	)
	nm.AddNode(varNode)
	return varNode, nil
}

// ensurePKI creates PKI directory and self-signed certificates if they don't exist
func ensurePKI(appName string) error {
	if _, err := os.Stat(certFile); err == nil {
		log.Info().Str("certFile", certFile).Msg("Using existing PKI certificates")
		return nil
	}

	log.Info().Msg("Generating self-signed certificates for OPC UA server")

	if err := os.MkdirAll(pkiDir, 0755); err != nil {
		return fmt.Errorf("failed to create PKI directory: %w", err)
	}

	return createSelfSignedCert(appName, certFile, keyFile)
}

// createSelfSignedCert generates a self-signed certificate for OPC UA server
func createSelfSignedCert(appName, certPath, keyPath string) error {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   appName,
			Organization: []string{"Steelmill KPI Dashboard"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost", appName, strings.ToLower(appName), "steelmill-kpi"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("0.0.0.0")},
	}

	template.URIs = []*url.URL{
		{Scheme: "urn", Opaque: "steelmill-kpi:dashboard"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	certFileHandle, err := os.Create(certPath)
	if err != nil {
		return fmt.Errorf("failed to create cert file: %w", err)
	}
	defer certFileHandle.Close()

	if err := pem.Encode(certFileHandle, &pem.Block{Type: "CERTIFICATE", Bytes: certDER}); err != nil {
		return fmt.Errorf("failed to encode certificate: %w", err)
	}

	keyFileHandle, err := os.Create(keyPath)
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	defer keyFileHandle.Close()

	keyDER := x509.MarshalPKCS1PrivateKey(privateKey)
	if err := pem.Encode(keyFileHandle, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: keyDER}); err != nil {
		return fmt.Errorf("failed to encode private key: %w", err)
	}

	log.Info().
		Str("certPath", certPath).
		Str("keyPath", keyPath).
		Msg("Self-signed certificates generated successfully")

	return nil
}
