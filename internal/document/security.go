package document

// SecurityMaterial is the Document Builder's view of the out-of-scope
// certificate-authority collaborator's output: the bytes D_security
// materializes into storage/files and storage/links entries. Field names
// mirror the conventional on-host paths each value is destined for.
// ProvisionSignerPub reaches the template context but securityTemplate
// does not write it to any file.
type SecurityMaterial struct {
	RootCAPEM          string
	RootBundlePEM      string
	ServerCertPEM      string
	ServerKeyPEM       string
	AuthorizedKeysText string
	ProvisionSignerPub string
}

// securityTemplate is the internal fragment D_security renders. It is not
// sourced from either root: it is part of the Transpiler itself, the same
// way the teacher's dataplane layer carries fixed config-section templates
// alongside user-authored ones.
const securityTemplate = `
storage:
  directories:
    - path: /etc/credstore
      mode: 0700
  files:
    - path: /etc/pki/tls/certs/root_ca.crt
      mode: 0644
      contents:
        inline: |
          {{ security.root_ca_pem | indent(10) }}
    - path: /etc/pki/ca-trust/source/anchors/root_bundle.crt
      mode: 0644
      contents:
        inline: |
          {{ security.root_bundle_pem | indent(10) }}
    - path: /etc/pki/tls/certs/server.crt
      mode: 0644
      contents:
        inline: |
          {{ security.server_cert_pem | indent(10) }}
    - path: /etc/pki/tls/private/server.key
      mode: 0600
      contents:
        inline: |
          {{ security.server_key_pem | indent(10) }}
{%- if security.authorized_keys_text %}
    - path: /home/core/.ssh/authorized_keys
      mode: 0600
      user:
        name: core
      group:
        name: core
      contents:
        inline: |
          {{ security.authorized_keys_text | indent(10) }}
{%- endif %}
  links:
    - path: /etc/credstore/root_ca.crt
      target: /etc/pki/tls/certs/root_ca.crt
      hard: false
    - path: /etc/credstore/root_bundle.crt
      target: /etc/pki/ca-trust/source/anchors/root_bundle.crt
      hard: false
    - path: /etc/credstore/server.crt
      target: /etc/pki/tls/certs/server.crt
      hard: false
    - path: /etc/credstore/server.key
      target: /etc/pki/tls/private/server.key
      hard: false
`
