package reconciler

// reconcilerTemplate is the fixed Jinja fragment that formats the
// precomputed operation lists (directories, links, files, units,
// accumulators) into the reconciliation DSL's state-block syntax. All
// path remapping, service-name extraction, and accumulator grouping
// happens in Go (operations.go); the template's job is purely formatting,
// mirroring the teacher's division of labor between Go-side config
// assembly and the HAProxy templates that render it.
const reconcilerTemplate = `# generated by butane-transpile; do not edit by hand
{% for d in directories -%}
ensure directory {{ d.path }}:
  file.directory:
    - name: {{ d.path | yaml }}
    - makedirs: true
{%- if d.mode %}
    - mode: {{ d.mode }}
{%- endif %}
{%- if d.user %}
    - user: {{ d.user | yaml }}
{%- endif %}
{%- if d.group %}
    - group: {{ d.group | yaml }}
{%- endif %}

{% endfor -%}
{% for l in links -%}
ensure {{ "hardlink" if l.hard else "symlink" }} {{ l.path }}:
  file.{{ "hardlink" if l.hard else "symlink" }}:
    - name: {{ l.path | yaml }}
    - target: {{ l.target | yaml }}
{%- if l.user %}
    - user: {{ l.user | yaml }}
{%- endif %}
{%- if l.group %}
    - group: {{ l.group | yaml }}
{%- endif %}

{% endfor -%}
{% for f in files -%}
managed file {{ f.path }}:
  file.managed:
    - name: {{ f.path | yaml }}
{%- if f.mode %}
    - mode: {{ f.mode }}
{%- endif %}
{%- if f.user %}
    - user: {{ f.user | yaml }}
{%- endif %}
{%- if f.group %}
    - group: {{ f.group | yaml }}
{%- endif %}
{%- if f.kind == "inline" %}
    - contents: {{ f.inline | yaml }}
{%- elif f.kind == "source_data" %}
    - unless: test "$(sha256sum {{ f.path }} 2>/dev/null | cut -d' ' -f1)" = "{{ f.sha256 }}"
    - contents_shell: mkdir -p {{ f.scratch_dir }} && base64 -d <<< "{{ f.data_base64 }}" > {{ f.scratch_dir }}/payload && mv {{ f.scratch_dir }}/payload {{ f.path }} && rm -rf {{ f.scratch_dir }}
{%- elif f.kind == "source_url" %}
    - source: {{ f.source_url | yaml }}
{%- if f.verification %}
    - source_hash: {{ f.verification | yaml }}
{%- endif %}
{%- endif %}
{%- if f.has_service_name %}

accumulate service_changed for {{ f.service_name }}:
  file.accumulated:
    - filename: /run/butane-transpile/service_changed.list
    - text: {{ f.service_name | yaml }}
    - require_in:
      - file: managed file {{ f.path }}
{%- endif %}

{% endfor -%}
{% for u in units -%}
managed file {{ u.path }}:
  file.managed:
    - name: {{ u.path | yaml }}
{%- if u.has_contents %}
    - contents: {{ u.contents | yaml }}
{%- else %}
    - replace: false
{%- endif %}

{%- if u.has_service_name %}
accumulate service_changed for {{ u.service_name }} (unit {{ u.name }}):
  file.accumulated:
    - filename: /run/butane-transpile/service_changed.list
    - text: {{ u.service_name | yaml }}
    - require_in:
      - file: managed file {{ u.path }}

{%- endif %}
{%- if u.has_enabled %}
{%- if u.enabled %}
service running {{ u.name }}:
  service.running:
    - name: {{ u.name | yaml }}
    - enable: true
{%- if u.unmask %}
    - unmask: true
{%- endif %}
{%- else %}
service dead {{ u.name }}:
  service.dead:
    - name: {{ u.name | yaml }}
    - enable: false
{%- endif %}
{%- endif %}

{% for dr in u.dropins -%}
managed file {{ dr.path }}:
  file.managed:
    - name: {{ dr.path | yaml }}
    - makedirs: true
{%- if dr.has_contents %}
    - contents: {{ dr.contents | yaml }}
{%- else %}
    - replace: false
{%- endif %}

{%- if dr.has_service_name %}
accumulate service_changed for {{ dr.service_name }} (dropin {{ dr.name }} of {{ u.name }}):
  file.accumulated:
    - filename: /run/butane-transpile/service_changed.list
    - text: {{ dr.service_name | yaml }}
    - require_in:
      - file: managed file {{ dr.path }}

{%- endif %}
{% endfor -%}
{% endfor -%}
{% for e in service_enabled -%}
accumulate service_enabled for {{ e.service }}:
  file.accumulated:
    - filename: /run/butane-transpile/service_enabled.list
    - text: {{ e.service | yaml }}
    - require_in:
      - service: service running {{ e.unit }}

{% endfor -%}
{% for dd in service_disabled -%}
accumulate service_disabled for {{ dd.service }}:
  file.accumulated:
    - filename: /run/butane-transpile/service_disabled.list
    - text: {{ dd.service | yaml }}
    - require_in:
      - service: service dead {{ dd.unit }}

{% endfor -%}
`
