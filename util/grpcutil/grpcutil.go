// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package grpcutil

import (
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"net/url"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// TLSOption builds the transport credential dial option from the given cert
// paths. An empty caPath yields an insecure connection.
func TLSOption(caPath, certPath, keyPath string) (grpc.DialOption, error) {
	if len(caPath) == 0 {
		return grpc.WithInsecure(), nil
	}
	var certificates []tls.Certificate
	if len(certPath) != 0 && len(keyPath) != 0 {
		certificate, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, errors.Errorf("could not load client key pair: %s", err)
		}
		certificates = append(certificates, certificate)
	}
	certPool := x509.NewCertPool()
	ca, err := ioutil.ReadFile(caPath)
	if err != nil {
		return nil, errors.Errorf("could not read ca certificate: %s", err)
	}
	if !certPool.AppendCertsFromPEM(ca) {
		return nil, errors.New("failed to append ca certs")
	}
	creds := credentials.NewTLS(&tls.Config{
		Certificates: certificates,
		RootCAs:      certPool,
	})
	return grpc.WithTransportCredentials(creds), nil
}

// GetClientConn returns a gRPC client connection to addr, which may carry an
// URL scheme.
func GetClientConn(addr string, caPath string, certPath string, keyPath string, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opt, err := TLSOption(caPath, certPath, keyPath)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	host := u.Host
	if len(host) == 0 {
		host = addr
	}
	cc, err := grpc.Dial(host, append([]grpc.DialOption{opt}, extra...)...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return cc, nil
}
